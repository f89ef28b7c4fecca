package compress

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/internal/pool"
)

// Codec provides compression and decompression for one record payload
// algorithm. Compress and Decompress never modify their input; the compressing
// codecs return newly allocated, caller-owned slices, while NoOp returns src
// itself.
//
// Implementations carry no state shared across calls: a single Codec value is
// safe to use concurrently from any number of goroutines, including different
// compressor threads in a WriterMT pipeline.
type Codec interface {
	// Kind identifies the algorithm this Codec implements.
	Kind() format.CompressionType

	// Compress compresses src and returns the compressed result.
	Compress(src []byte) ([]byte, error)

	// Decompress decompresses src and returns the original data.
	Decompress(src []byte) ([]byte, error)
}

// BoundedCodec is implemented by codecs that can compress directly into a
// caller-sized destination slice without an intermediate allocation — the
// record output path uses this to compress straight into the target buffer,
// just past where the record header will be written.
type BoundedCodec interface {
	Codec

	// CompressInto compresses src into dst, using at most len(dst) bytes.
	// It returns the number of bytes written, or errs.CompressError wrapped
	// with the underlying cause if src does not fit.
	CompressInto(src []byte, dst []byte) (int, error)
}

// BufferCodec is implemented by codecs that can decompress directly into a
// growable pooled buffer, appending at the buffer's current length. The
// record input path uses this to avoid allocating a throwaway slice per
// record on the hot read path.
type BufferCodec interface {
	Codec

	// DecompressInto decompresses src and appends the result to dst,
	// growing dst if necessary. It returns the number of bytes appended.
	DecompressInto(src []byte, dst *pool.ByteBuffer) (int, error)
}

// New returns the built-in Codec for the given compression kind.
//
// The returned value is stateless and may be cached and reused freely; callers
// that want the bounded in-place paths should type-assert the result to
// BoundedCodec / BufferCodec, both of which the LZ4 codecs satisfy.
func New(kind format.CompressionType) (Codec, error) {
	switch kind {
	case format.CompressionNone:
		return NoOp{}, nil
	case format.CompressionLZ4Fast:
		return NewLZ4Fast(), nil
	case format.CompressionLZ4Best:
		return NewLZ4Best(), nil
	case format.CompressionGzip:
		return Gzip{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression code %d", errs.CompressError, kind)
	}
}
