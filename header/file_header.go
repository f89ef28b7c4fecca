package header

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
)

// FileHeader is the header at byte 0 of a HIPO/EVIO file. It shares
// RecordHeader's 56-byte wire shape; only the meaning of a few words
// differs: word 1 is a file-type tag rather than a length, word 2 is a
// split-file number, word 9 is always 0, and words 11-12 hold the absolute
// byte offset of the trailer record rather than a caller-defined register.
type FileHeader struct {
	// TypeID is word 1.
	TypeID uint32

	// SplitNumber is word 2: which file this is in a split sequence.
	SplitNumber uint32

	// RecordCount is word 4: the number of records in the file, patched
	// in place when the writer is closed.
	RecordCount uint32

	// IndexLength is word 5.
	IndexLength uint32

	// Info is word 6.
	Info BitInfo

	// UserHeaderLength is word 7.
	UserHeaderLength uint32

	// TrailerPosition is words 11-12: the absolute byte offset of the
	// trailer record, or 0 if the file has none (yet).
	TrailerPosition uint64

	// UserRegister2 is words 13-14.
	UserRegister2 uint64

	// Endian is the byte order this header was decoded under, or the
	// order it will be encoded with.
	Endian endian.EndianEngine
}

// NewFileHeader returns a FileHeader for a fresh file with the given
// header-kind tag (one of KindEvioFile1/2 or KindHipoFile1/2) and byte order.
func NewFileHeader(kind format.HeaderKind, engine endian.EndianEngine) *FileHeader {
	return &FileHeader{
		Info:   NewBitInfo(Version, kind),
		Endian: engine,
	}
}

// HasTrailerWithIndex reports bit 10 of Info: whether the file's trailer
// record carries a record-lookup index.
func (h *FileHeader) HasTrailerWithIndex() bool { return h.Info.HasTrailerWithIndex() }

// ReadFileHeader parses a 56-byte file header out of src at offset,
// auto-detecting byte order against preferred.
func ReadFileHeader(src []byte, offset int, preferred endian.EndianEngine) (*FileHeader, error) {
	if len(src) < offset+ByteLength {
		return nil, fmt.Errorf("%w: file header needs %d bytes at offset %d, have %d", errs.Io, ByteLength, offset, len(src)-offset)
	}

	engine, ok := endian.DetectMagic(src[offset+28:offset+32], Magic, preferred)
	if !ok {
		return nil, fmt.Errorf("%w: magic word %#08x not found at offset %d", errs.NotHipo, Magic, offset)
	}

	h := &FileHeader{Endian: engine}

	h.TypeID = engine.Uint32(src[offset:])
	h.SplitNumber = engine.Uint32(src[offset+4:])
	headerLengthWords := engine.Uint32(src[offset+8:])
	h.RecordCount = engine.Uint32(src[offset+12:])
	h.IndexLength = engine.Uint32(src[offset+16:])
	h.Info = BitInfo(engine.Uint32(src[offset+20:]))
	h.UserHeaderLength = engine.Uint32(src[offset+24:])
	// offset+28..32 is the magic word, already consumed by DetectMagic.
	// offset+32..36 (word 9) is always 0 for a file header.
	// offset+36..40 (word 10) carries no compression information here.
	h.TrailerPosition = engine.Uint64(src[offset+40:])
	h.UserRegister2 = engine.Uint64(src[offset+48:])

	if h.Info.Version() != Version {
		return nil, fmt.Errorf("%w: got version %d, want %d", errs.BadVersion, h.Info.Version(), Version)
	}
	if headerLengthWords != LengthWords {
		return nil, fmt.Errorf("%w: header-length-words is %d, want %d", errs.BadHeader, headerLengthWords, LengthWords)
	}

	return h, nil
}

// WriteFileHeader serializes h into dst at offset, using h.Endian.
func WriteFileHeader(dst []byte, offset int, h *FileHeader) error {
	if len(dst) < offset+ByteLength {
		return fmt.Errorf("%w: file header needs %d bytes at offset %d, have %d", errs.BufferTooSmall, ByteLength, offset, len(dst)-offset)
	}

	h.Info = h.Info.WithUserHeaderPad(padFor(h.UserHeaderLength))
	engine := h.Endian

	engine.PutUint32(dst[offset:], h.TypeID)
	engine.PutUint32(dst[offset+4:], h.SplitNumber)
	engine.PutUint32(dst[offset+8:], LengthWords)
	engine.PutUint32(dst[offset+12:], h.RecordCount)
	engine.PutUint32(dst[offset+16:], h.IndexLength)
	engine.PutUint32(dst[offset+20:], uint32(h.Info))
	engine.PutUint32(dst[offset+24:], h.UserHeaderLength)
	engine.PutUint32(dst[offset+28:], Magic)
	engine.PutUint32(dst[offset+32:], 0)
	engine.PutUint32(dst[offset+36:], 0)
	engine.PutUint64(dst[offset+40:], h.TrailerPosition)
	engine.PutUint64(dst[offset+48:], h.UserRegister2)

	return nil
}

// TrailerIndexEntry is one (length, event count) pair in a trailer's
// optional record-lookup index, in on-disk order: one entry per record the
// file holds, in the order the records were written.
type TrailerIndexEntry struct {
	// LengthBytes is the indexed record's total length in bytes.
	LengthBytes uint32

	// EventCount is the number of events the indexed record holds.
	EventCount uint32
}

// WriteTrailer writes a trailer record header at dst[offset:], optionally
// followed by index, and returns the total number of bytes written
// (header plus index payload).
//
// The trailer is marked with IsLastRecord and header kind KindHipoTrailer;
// it carries no compression and no user header. When index is non-empty,
// the caller is responsible for also setting HasTrailerWithIndex on the
// file header so a later scan knows to look for it.
func WriteTrailer(dst []byte, offset int, recordNumber uint32, engine endian.EndianEngine, index []TrailerIndexEntry) (int, error) {
	dataLength := uint32(len(index)) * 8

	h := &RecordHeader{
		Number:      recordNumber,
		EventCount:  0,
		IndexLength: 0,
		DataLength:  dataLength,
		Endian:      engine,
	}
	h.Info = NewBitInfo(Version, format.KindHipoTrailer).WithIsLastRecord(true)
	h.LengthWords = Words(ByteLength + PaddedLen(dataLength))

	if err := WriteRecordHeader(dst, offset, h); err != nil {
		return 0, err
	}

	pos := offset + ByteLength
	for _, e := range index {
		if len(dst) < pos+8 {
			return 0, fmt.Errorf("%w: trailer index needs %d more bytes at offset %d", errs.BufferTooSmall, 8, pos)
		}

		engine.PutUint32(dst[pos:], e.LengthBytes)
		engine.PutUint32(dst[pos+4:], e.EventCount)
		pos += 8
	}

	return int(h.LengthWords) * 4, nil
}

// ReadTrailerIndex reads count (length, event-count) pairs out of src at
// offset, the data section of a trailer record written by WriteTrailer.
func ReadTrailerIndex(src []byte, offset int, count int, engine endian.EndianEngine) ([]TrailerIndexEntry, error) {
	if len(src) < offset+count*8 {
		return nil, fmt.Errorf("%w: trailer index needs %d bytes at offset %d, have %d", errs.Io, count*8, offset, len(src)-offset)
	}

	out := make([]TrailerIndexEntry, count)
	pos := offset
	for i := range out {
		out[i] = TrailerIndexEntry{
			LengthBytes: engine.Uint32(src[pos:]),
			EventCount:  engine.Uint32(src[pos+4:]),
		}
		pos += 8
	}

	return out, nil
}

// PatchUint32 overwrites the 4 bytes at dst[byteOffset:] with value, using
// engine's byte order. Writer and WriterMT use this to patch a file header's
// record-count field in an already-written header without rebuilding it.
func PatchUint32(dst []byte, byteOffset int, engine endian.EndianEngine, value uint32) {
	engine.PutUint32(dst[byteOffset:], value)
}

// PatchUint64 overwrites the 8 bytes at dst[byteOffset:] with value, using
// engine's byte order. Writer and WriterMT use this to patch a file header's
// trailer-position field after the trailer has been written.
func PatchUint64(dst []byte, byteOffset int, engine endian.EndianEngine, value uint64) {
	engine.PutUint64(dst[byteOffset:], value)
}
