package header

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
)

func TestRecordHeader_RoundTrip(t *testing.T) {
	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		h := &RecordHeader{
			LengthWords:      42,
			Number:           7,
			EventCount:       3,
			IndexLength:      12,
			UserHeaderLength: 10,
			DataLength:       72,
			CompressionType:  format.CompressionLZ4Fast,
			CompressedLength: 55,
			UserRegister1:    0x1122334455667788,
			UserRegister2:    0x99AABBCCDDEEFF00,
			Endian:           engine,
		}
		h.Info = NewBitInfo(Version, format.KindRecord).WithEventType(format.EventType(5))

		buf := make([]byte, ByteLength)
		require.NoError(t, WriteRecordHeader(buf, 0, h))

		got, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
		require.NoError(t, err)

		require.Equal(t, h.LengthWords, got.LengthWords)
		require.Equal(t, h.Number, got.Number)
		require.Equal(t, h.EventCount, got.EventCount)
		require.Equal(t, h.IndexLength, got.IndexLength)
		require.Equal(t, h.UserHeaderLength, got.UserHeaderLength)
		require.Equal(t, h.DataLength, got.DataLength)
		require.Equal(t, h.CompressionType, got.CompressionType)
		require.Equal(t, h.CompressedLength, got.CompressedLength)
		require.Equal(t, h.UserRegister1, got.UserRegister1)
		require.Equal(t, h.UserRegister2, got.UserRegister2)
		require.Equal(t, h.Info.Version(), got.Info.Version())
		require.Equal(t, h.Info.EventType(), got.Info.EventType())
		require.Equal(t, engine, got.Endian)
	}
}

func TestRecordHeader_WriteDerivesPaddingBits(t *testing.T) {
	h := &RecordHeader{
		UserHeaderLength: 5,
		DataLength:       7,
		CompressedLength: 1,
		Endian:           endian.GetLittleEndianEngine(),
	}
	h.Info = NewBitInfo(Version, format.KindRecord)

	buf := make([]byte, ByteLength)
	require.NoError(t, WriteRecordHeader(buf, 0, h))

	got, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.NoError(t, err)

	require.Equal(t, uint8(3), got.Info.UserHeaderPad())
	require.Equal(t, uint8(1), got.Info.DataPad())
	require.Equal(t, uint8(3), got.Info.CompressedPad())
}

func TestRecordHeader_DetectsOppositeEndian(t *testing.T) {
	h := &RecordHeader{
		LengthWords: 14,
		Number:      1,
		Endian:      endian.GetBigEndianEngine(),
	}
	h.Info = NewBitInfo(Version, format.KindRecord)

	buf := make([]byte, ByteLength)
	require.NoError(t, WriteRecordHeader(buf, 0, h))

	got, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.NoError(t, err)
	require.Equal(t, endian.GetBigEndianEngine(), got.Endian)
	require.Equal(t, uint32(14), got.LengthWords)
}

func TestRecordHeader_RejectsBadMagic(t *testing.T) {
	buf := make([]byte, ByteLength)
	_, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.ErrorIs(t, err, errs.NotHipo)
}

func TestRecordHeader_RejectsBadVersion(t *testing.T) {
	h := &RecordHeader{Endian: endian.GetLittleEndianEngine()}
	h.Info = NewBitInfo(9, format.KindRecord)

	buf := make([]byte, ByteLength)
	require.NoError(t, WriteRecordHeader(buf, 0, h))

	_, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.ErrorIs(t, err, errs.BadVersion)
}

func TestRecordHeader_RejectsBadHeaderLength(t *testing.T) {
	h := &RecordHeader{Endian: endian.GetLittleEndianEngine()}
	h.Info = NewBitInfo(Version, format.KindRecord)

	buf := make([]byte, ByteLength)
	require.NoError(t, WriteRecordHeader(buf, 0, h))
	// Corrupt header-length-words (word 3, byte offset 8).
	endian.GetLittleEndianEngine().PutUint32(buf[8:], 13)

	_, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.ErrorIs(t, err, errs.BadHeader)
}

func TestRecordHeader_RejectsInconsistentIndexLength(t *testing.T) {
	h := &RecordHeader{EventCount: 3, IndexLength: 13, Endian: endian.GetLittleEndianEngine()}
	h.Info = NewBitInfo(Version, format.KindRecord)

	buf := make([]byte, ByteLength)
	require.NoError(t, WriteRecordHeader(buf, 0, h))

	_, err := ReadRecordHeader(buf, 0, endian.GetLittleEndianEngine())
	require.ErrorIs(t, err, errs.BadHeader)
}

func TestRecordHeader_UncompressedRecordLength(t *testing.T) {
	h := &RecordHeader{
		IndexLength:      12,
		UserHeaderLength: 5,
		DataLength:       72,
	}

	require.Equal(t, ByteLength+12+8+72, int(h.UncompressedRecordLength()))
}

func TestRecordHeader_AtNonzeroOffset(t *testing.T) {
	h := &RecordHeader{Number: 3, Endian: endian.GetLittleEndianEngine()}
	h.Info = NewBitInfo(Version, format.KindRecord)

	buf := make([]byte, 100)
	require.NoError(t, WriteRecordHeader(buf, 20, h))

	got, err := ReadRecordHeader(buf, 20, endian.GetLittleEndianEngine())
	require.NoError(t, err)
	require.Equal(t, uint32(3), got.Number)
}
