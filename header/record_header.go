package header

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
)

// RecordHeader is the general 56-byte header shape used by plain records and
// by trailers (the two are distinguished only by Info.Kind()). The 10 leading
// words are fully decoded; the remaining two 64-bit user registers are
// carried verbatim for callers that use them.
type RecordHeader struct {
	// LengthWords is word 1: the record's total length in 4-byte words,
	// inclusive of this header and padded.
	LengthWords uint32

	// Number is word 2: the 1-indexed record number.
	Number uint32

	// EventCount is word 4: the number of events this record holds.
	EventCount uint32

	// IndexLength is word 5: the byte length of the per-event length
	// index, either 0 or 4*EventCount.
	IndexLength uint32

	// Info is word 6: version, flags, paddings, and header kind.
	Info BitInfo

	// UserHeaderLength is word 7: the unpadded byte length of the
	// optional user header.
	UserHeaderLength uint32

	// DataLength is word 9: the unpadded byte length of the
	// uncompressed event payload.
	DataLength uint32

	// CompressionType and CompressedLength together are word 10: the
	// algorithm applied to the payload and the unpadded byte length of
	// the result ( 0 when CompressionType is CompressionNone ).
	CompressionType  format.CompressionType
	CompressedLength uint32

	// UserRegister1 and UserRegister2 are words 11-12 and 13-14: two
	// caller-defined 64-bit values with no meaning to this codec.
	UserRegister1 uint64
	UserRegister2 uint64

	// Endian is the byte order this header was decoded under, or the
	// order it will be encoded with.
	Endian endian.EndianEngine
}

// NewRecordHeader returns a RecordHeader for a fresh, empty record with the
// given header kind (KindRecord for a plain record, KindRecordTrailer or
// KindHipoTrailer for a trailer) and byte order.
func NewRecordHeader(kind format.HeaderKind, engine endian.EndianEngine) *RecordHeader {
	return &RecordHeader{
		Info:   NewBitInfo(Version, kind),
		Endian: engine,
	}
}

// Kind reports the header-kind tag packed into Info.
func (h *RecordHeader) Kind() format.HeaderKind { return h.Info.Kind() }

// IsTrailer reports whether this header tags a trailer record.
func (h *RecordHeader) IsTrailer() bool { return h.Info.Kind().IsTrailer() }

// UncompressedRecordLength returns header_length + index_length +
// padded(user_header_length) + padded(data_length), the record's total size
// on disk when written uncompressed.
func (h *RecordHeader) UncompressedRecordLength() uint32 {
	return ByteLength + h.IndexLength + PaddedLen(h.UserHeaderLength) + PaddedLen(h.DataLength)
}

// setPaddings derives and stores the three pad-bit fields in Info from the
// current UserHeaderLength, DataLength, and CompressedLength.
func (h *RecordHeader) setPaddings() {
	h.Info = h.Info.
		WithUserHeaderPad(padFor(h.UserHeaderLength)).
		WithDataPad(padFor(h.DataLength)).
		WithCompressedPad(padFor(h.CompressedLength))
}

// ReadRecordHeader parses a 56-byte general header out of src at offset,
// auto-detecting byte order against preferred.
//
// It fails with errs.NotHipo if the magic word matches neither byte order,
// errs.BadVersion if the decoded version is not 6, and errs.BadHeader if
// header-length-words is not 14.
func ReadRecordHeader(src []byte, offset int, preferred endian.EndianEngine) (*RecordHeader, error) {
	if len(src) < offset+ByteLength {
		return nil, fmt.Errorf("%w: header needs %d bytes at offset %d, have %d", errs.Io, ByteLength, offset, len(src)-offset)
	}

	engine, ok := endian.DetectMagic(src[offset+28:offset+32], Magic, preferred)
	if !ok {
		return nil, fmt.Errorf("%w: magic word %#08x not found at offset %d", errs.NotHipo, Magic, offset)
	}

	h := &RecordHeader{Endian: engine}

	h.LengthWords = engine.Uint32(src[offset:])
	h.Number = engine.Uint32(src[offset+4:])
	headerLengthWords := engine.Uint32(src[offset+8:])
	h.EventCount = engine.Uint32(src[offset+12:])
	h.IndexLength = engine.Uint32(src[offset+16:])
	h.Info = BitInfo(engine.Uint32(src[offset+20:]))
	h.UserHeaderLength = engine.Uint32(src[offset+24:])
	// offset+28..32 is the magic word, already consumed by DetectMagic.
	h.DataLength = engine.Uint32(src[offset+32:])
	word10 := engine.Uint32(src[offset+36:])
	h.CompressionType = format.CompressionType(word10 >> 28)
	h.CompressedLength = word10 & 0x0FFFFFFF
	h.UserRegister1 = engine.Uint64(src[offset+40:])
	h.UserRegister2 = engine.Uint64(src[offset+48:])

	if h.Info.Version() != Version {
		return nil, fmt.Errorf("%w: got version %d, want %d", errs.BadVersion, h.Info.Version(), Version)
	}
	if headerLengthWords != LengthWords {
		return nil, fmt.Errorf("%w: header-length-words is %d, want %d", errs.BadHeader, headerLengthWords, LengthWords)
	}
	if h.IndexLength != 0 && h.IndexLength != 4*h.EventCount {
		return nil, fmt.Errorf("%w: index length %d is neither 0 nor 4*%d", errs.BadHeader, h.IndexLength, h.EventCount)
	}

	return h, nil
}

// WriteRecordHeader serializes h into dst at offset, using h.Endian. The
// magic word is written in that same order, so any reader auto-detecting
// byte order from it recovers h.Endian exactly.
//
// WriteRecordHeader derives the three pad-bit fields from UserHeaderLength,
// DataLength, and CompressedLength before encoding Info; callers do not set
// them directly.
func WriteRecordHeader(dst []byte, offset int, h *RecordHeader) error {
	if len(dst) < offset+ByteLength {
		return fmt.Errorf("%w: header needs %d bytes at offset %d, have %d", errs.BufferTooSmall, ByteLength, offset, len(dst)-offset)
	}

	h.setPaddings()
	engine := h.Endian

	engine.PutUint32(dst[offset:], h.LengthWords)
	engine.PutUint32(dst[offset+4:], h.Number)
	engine.PutUint32(dst[offset+8:], LengthWords)
	engine.PutUint32(dst[offset+12:], h.EventCount)
	engine.PutUint32(dst[offset+16:], h.IndexLength)
	engine.PutUint32(dst[offset+20:], uint32(h.Info))
	engine.PutUint32(dst[offset+24:], h.UserHeaderLength)
	engine.PutUint32(dst[offset+28:], Magic)
	engine.PutUint32(dst[offset+32:], h.DataLength)
	engine.PutUint32(dst[offset+36:], uint32(h.CompressionType)<<28|h.CompressedLength&0x0FFFFFFF)
	engine.PutUint64(dst[offset+40:], h.UserRegister1)
	engine.PutUint64(dst[offset+48:], h.UserRegister2)

	return nil
}
