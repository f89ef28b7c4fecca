// Package format defines the small enums shared across the header, compress,
// record and writer packages: compression algorithm codes and the header-kind
// tag packed into a record's bit-info word.
package format

// CompressionType identifies the compression algorithm applied to a record's
// payload. The numeric values are wire values: they occupy the top 4 bits of
// header word 10 and must not be renumbered.
type CompressionType uint8

const (
	CompressionNone    CompressionType = 0 // payload stored as-is
	CompressionLZ4Fast CompressionType = 1 // LZ4 block, default compressor
	CompressionLZ4Best CompressionType = 2 // LZ4 block, high-compression compressor
	CompressionGzip    CompressionType = 3 // DEFLATE-framed gzip stream
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionLZ4Fast:
		return "LZ4Fast"
	case CompressionLZ4Best:
		return "LZ4Best"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// IsCompressed reports whether c denotes an algorithm other than CompressionNone.
func (c CompressionType) IsCompressed() bool {
	return c != CompressionNone
}

// Valid reports whether c is one of the four wire-defined compression codes.
func (c CompressionType) Valid() bool {
	return c <= CompressionGzip
}

// HeaderKind identifies the role of a header, packed into bits 28-31 of
// bit-info. Records and files share the same 56-byte layout; this tag is how
// a reader tells a plain record header from a trailer or a file header.
type HeaderKind uint8

const (
	KindRecord       HeaderKind = 0
	KindEvioFile1    HeaderKind = 1
	KindEvioFile2    HeaderKind = 2
	KindRecordTrailer HeaderKind = 3
	KindHipoRecord   HeaderKind = 4
	KindHipoFile1    HeaderKind = 5
	KindHipoFile2    HeaderKind = 6
	KindHipoTrailer  HeaderKind = 7
)

// IsTrailer reports whether k tags a trailer record (EVIO or HIPO variant).
func (k HeaderKind) IsTrailer() bool {
	return k == KindRecordTrailer || k == KindHipoTrailer
}

// IsFileHeader reports whether k tags a file-level header rather than a record.
func (k HeaderKind) IsFileHeader() bool {
	switch k {
	case KindEvioFile1, KindEvioFile2, KindHipoFile1, KindHipoFile2:
		return true
	default:
		return false
	}
}

func (k HeaderKind) String() string {
	switch k {
	case KindRecord:
		return "Record"
	case KindEvioFile1, KindEvioFile2:
		return "EvioFile"
	case KindRecordTrailer:
		return "Trailer"
	case KindHipoRecord:
		return "HipoRecord"
	case KindHipoFile1, KindHipoFile2:
		return "HipoFile"
	case KindHipoTrailer:
		return "HipoTrailer"
	default:
		return "Unknown"
	}
}

// EventType is the 4-bit event-type tag carried in bit-info bits 10-13. The
// record engine treats it as an opaque pass-through value set by the caller
// (the EVIO tree layer assigns meaning to specific codes); it has no effect on
// record parsing or compression.
type EventType uint8
