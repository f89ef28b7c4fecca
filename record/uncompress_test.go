package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/header"
)

func buildCompressedRecord(t *testing.T, compressionType format.CompressionType, events [][]byte) []byte {
	t.Helper()

	ro, err := NewRecordOutput(WithCompressionType(compressionType))
	require.NoError(t, err)

	for _, ev := range events {
		require.True(t, ro.AddEvent(ev))
	}

	buf, err := ro.Build()
	require.NoError(t, err)

	out := make([]byte, len(buf))
	copy(out, buf)

	return out
}

func TestUncompressRecord_RoundTrip(t *testing.T) {
	events := [][]byte{
		make([]byte, 40),
		make([]byte, 60),
	}
	for i := range events[0] {
		events[0][i] = byte(i)
	}
	for i := range events[1] {
		events[1][i] = byte(i * 3)
	}

	for _, ct := range []format.CompressionType{format.CompressionLZ4Fast, format.CompressionLZ4Best, format.CompressionGzip} {
		compressed := buildCompressedRecord(t, ct, events)

		h, err := header.ReadRecordHeader(compressed, 0, endian.GetLittleEndianEngine())
		require.NoError(t, err)
		require.True(t, h.CompressionType.IsCompressed())

		dst := make([]byte, h.UncompressedRecordLength())
		n, err := UncompressRecord(compressed, 0, dst, h)
		require.NoError(t, err)
		require.Equal(t, int(h.UncompressedRecordLength()), n)

		outHeader, err := header.ReadRecordHeader(dst, 0, endian.GetLittleEndianEngine())
		require.NoError(t, err)
		require.Equal(t, format.CompressionType(0), outHeader.CompressionType)
		require.Equal(t, uint32(0), outHeader.CompressedLength)
		require.Equal(t, uint32(2), outHeader.EventCount)

		ri, err := NewRecordInput(WithDefaultEndian(outHeader.Endian))
		require.NoError(t, err)
		require.NoError(t, ri.ReadRecordBuffer(dst[:n], 0))

		for i, want := range events {
			require.Equal(t, want, ri.GetEvent(i))
		}
	}
}

func TestUncompressRecord_DstTooSmall(t *testing.T) {
	events := [][]byte{make([]byte, 100)}
	compressed := buildCompressedRecord(t, format.CompressionLZ4Fast, events)

	h, err := header.ReadRecordHeader(compressed, 0, endian.GetLittleEndianEngine())
	require.NoError(t, err)

	dst := make([]byte, h.UncompressedRecordLength()-1)
	_, err = UncompressRecord(compressed, 0, dst, h)
	require.Error(t, err)
}
