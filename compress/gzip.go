package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
)

// Gzip is the CompressionGzip codec (wire code 3). It wraps
// klauspost/compress's gzip package, a drop-in replacement for the standard
// library's compress/gzip with a substantially faster decoder.
//
// Gzip has no bounded, allocation-free compression API the way the LZ4 block
// format does, so it implements only Codec, not BoundedCodec: RecordOutput.Build
// falls back to an intermediate allocation for this algorithm.
type Gzip struct{}

var _ Codec = Gzip{}

func (Gzip) Kind() format.CompressionType { return format.CompressionGzip }

// gzipWriterPool pools gzip.Writer instances. Resetting a writer onto a new
// bytes.Buffer is far cheaper than allocating the Huffman tables from scratch.
var gzipWriterPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

// Compress gzip-compresses src into a newly allocated slice.
func (Gzip) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src) / 2)

	w, _ := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("%w: gzip compress: %w", errs.CompressError, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: gzip compress: %w", errs.CompressError, err)
	}

	return buf.Bytes(), nil
}

// Decompress gzip-decompresses src into a newly allocated slice.
func (Gzip) Decompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip decompress: %w", errs.CompressError, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip decompress: %w", errs.CompressError, err)
	}

	return out, nil
}
