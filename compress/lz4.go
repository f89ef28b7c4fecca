package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	hipoerrs "github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/internal/pool"
)

// lz4CompressorPool and lz4CompressorHCPool pool pierrec's block compressors.
// Both types carry an internal hash table that is expensive to rebuild on
// every call; reusing them across records is the main win over allocating a
// fresh compressor per record.
var (
	lz4CompressorPool = sync.Pool{
		New: func() any { return &lz4.Compressor{} },
	}
	lz4CompressorHCPool = sync.Pool{
		New: func() any { return &lz4.CompressorHC{Level: lz4.Level9} },
	}
)

// LZ4Fast compresses with pierrec's default block compressor: fast to
// compress and to decompress, at a modest ratio. This is CompressionLZ4Fast
// (wire code 1).
type LZ4Fast struct{}

// LZ4Best compresses with pierrec's high-compression block compressor
// (level 9). It trades compression throughput for a smaller record at the
// same decompression speed as LZ4Fast. This is CompressionLZ4Best (wire
// code 2).
type LZ4Best struct{}

var (
	_ BoundedCodec = LZ4Fast{}
	_ BoundedCodec = LZ4Best{}
	_ BufferCodec  = LZ4Fast{}
	_ BufferCodec  = LZ4Best{}
)

// NewLZ4Fast creates an LZ4Fast codec. The zero value is equally usable;
// this constructor exists to match the other codecs' construction style.
func NewLZ4Fast() LZ4Fast { return LZ4Fast{} }

// NewLZ4Best creates an LZ4Best codec.
func NewLZ4Best() LZ4Best { return LZ4Best{} }

func (LZ4Fast) Kind() format.CompressionType { return format.CompressionLZ4Fast }
func (LZ4Best) Kind() format.CompressionType { return format.CompressionLZ4Best }

// Compress compresses src using the default block compressor.
func (c LZ4Fast) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.CompressInto(src, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}

// Compress compresses src using the level-9 block compressor.
func (c LZ4Best) Compress(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.CompressInto(src, dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}

// CompressInto compresses src into dst using the default block compressor,
// without allocating an output buffer. This is the path RecordOutput.Build
// uses to compress straight into the target record, just past the header.
func (LZ4Fast) CompressInto(src []byte, dst []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: lz4 fast compress: %w", hipoerrs.CompressError, err)
	}

	return n, nil
}

// CompressInto compresses src into dst using the level-9 block compressor.
func (LZ4Best) CompressInto(src []byte, dst []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	lc, _ := lz4CompressorHCPool.Get().(*lz4.CompressorHC)
	defer lz4CompressorHCPool.Put(lc)

	n, err := lc.CompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: lz4 best compress: %w", hipoerrs.CompressError, err)
	}

	return n, nil
}

// Decompress decompresses src, growing a fresh output buffer until it fits.
func (LZ4Fast) Decompress(src []byte) ([]byte, error) { return lz4Decompress(src) }
func (LZ4Best) Decompress(src []byte) ([]byte, error) { return lz4Decompress(src) }

// DecompressInto decompresses src, appending the result to dst and growing
// dst as needed. Both LZ4 variants share a decoder: the compression code
// only changes which compressor is used to write a record, never how it is
// read back.
func (LZ4Fast) DecompressInto(src []byte, dst *pool.ByteBuffer) (int, error) {
	return lz4DecompressInto(src, dst)
}

func (LZ4Best) DecompressInto(src []byte, dst *pool.ByteBuffer) (int, error) {
	return lz4DecompressInto(src, dst)
}

// maxLZ4ProbeBytes bounds the adaptive buffer growth in lz4Decompress /
// lz4DecompressInto, so a corrupted frame claiming an implausible
// uncompressed size fails fast instead of exhausting memory.
const maxLZ4ProbeBytes = 256 * 1024 * 1024

func lz4Decompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	size := len(src) * 4
	for size <= maxLZ4ProbeBytes {
		dst := make([]byte, size)

		n, err := lz4.UncompressBlock(src, dst)
		if err == nil {
			return dst[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, fmt.Errorf("%w: lz4 decompress: %w", hipoerrs.CompressError, err)
		}

		size *= 2
	}

	return nil, fmt.Errorf("%w: lz4 decompress: output exceeds %d bytes", hipoerrs.CompressError, maxLZ4ProbeBytes)
}

func lz4DecompressInto(src []byte, dst *pool.ByteBuffer) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	start := dst.Len()
	size := len(src) * 4

	for {
		dst.SetLength(start)
		dst.ExtendOrGrow(size)

		n, err := lz4.UncompressBlock(src, dst.Slice(start, start+size))
		if err == nil {
			dst.SetLength(start + n)
			return n, nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) || size > maxLZ4ProbeBytes {
			dst.SetLength(start)
			return 0, fmt.Errorf("%w: lz4 decompress: %w", hipoerrs.CompressError, err)
		}

		size *= 2
	}
}
