package compress

import "github.com/JeffersonLab/go-hipo/format"

// NoOp is the CompressionNone codec. Most callers never construct it
// directly — RecordOutput.Build skips the codec entirely for
// CompressionNone, writing the uncompressed section straight into the
// target buffer — but it satisfies Codec so generic code paths (compress.New,
// benchmarking harnesses) don't need a special case.
type NoOp struct{}

var _ Codec = NoOp{}

func (NoOp) Kind() format.CompressionType { return format.CompressionNone }

// Compress returns src unchanged. The returned slice aliases src; callers
// must not mutate it afterward if they still hold the original.
func (NoOp) Compress(src []byte) ([]byte, error) { return src, nil }

// Decompress returns src unchanged.
func (NoOp) Decompress(src []byte) ([]byte, error) { return src, nil }
