// Package hipo reads and writes EVIO/HIPO v6 files: a self-describing,
// record-oriented binary container format for persisting large streams of
// physics-acquisition events to local files.
//
// # Core Features
//
//   - Bit-exact 56-byte record/file/trailer header codec with
//     magic-number-based endianness auto-detection
//   - Single-threaded and multi-threaded (ring-buffered, multi-compressor)
//     writers that produce byte-identical output
//   - Random-access and sequential event retrieval via a trailer-index fast
//     path or a linear file scan
//   - Pluggable per-record compression: none, LZ4-fast, LZ4-best, or gzip
//
// # Basic usage
//
// Writing a file:
//
//	f, _ := os.Create("run.evio")
//	w, _ := hipo.Create(f, nil, hipo.WithWriterCompression(format.CompressionLZ4Fast))
//	w.AddEvent(eventBytes)
//	w.Close()
//
// Reading it back:
//
//	f, _ := os.Open("run.evio")
//	r, _ := hipo.Open(f)
//	event, _ := r.GetEvent(0)
//
// # Package structure
//
// This package provides convenient top-level wrappers around the record,
// reader, and writer packages, covering the common single-file case. For
// fine-grained control — a caller-owned target buffer for RecordOutput, a
// custom EventFramer, multi-threaded writing with an explicit ring size and
// compressor count — use those packages directly.
package hipo

import (
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/internal/options"
	"github.com/JeffersonLab/go-hipo/reader"
	"github.com/JeffersonLab/go-hipo/writer"
)

// Checksum returns the xxHash64 digest of data. It has no meaning to the
// on-disk format: the two 64-bit user-register words every record and file
// header carries are caller-defined scratch space, and this is a convenience
// for callers who want to stash a content hash in one of them. Neither
// RecordOutput nor RecordInput computes or verifies it automatically.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// WriterOption configures Create's underlying single-threaded Writer.
type WriterOption = options.Option[*writer.Writer]

// WithWriterCompression sets the algorithm every record's payload is
// compressed with.
func WithWriterCompression(t format.CompressionType) WriterOption {
	return writer.WithCompressionType(t)
}

// WithWriterTrailer controls whether Close emits a trailer record, and
// whether that trailer carries a per-record lookup index. By default a
// trailer is written without an index.
func WithWriterTrailer(addTrailer, addIndex bool) WriterOption {
	return writer.WithTrailer(addTrailer, addIndex)
}

// Create opens w for writing: it writes a file header (with an optional user
// header right after it) and returns a Writer ready for AddEvent calls, one
// record at a time, on the caller's goroutine.
//
// For multi-threaded writing, construct a writer.WriterMT directly via
// writer.OpenMT.
func Create(w io.WriteSeeker, userHeader []byte, opts ...WriterOption) (*writer.Writer, error) {
	return writer.Open(w, userHeader, opts...)
}

// ReaderOption configures Open's underlying Reader.
type ReaderOption = options.Option[*reader.Reader]

// Open constructs a Reader over r and scans it for records: it takes the
// trailer-index fast path when the file header advertises one, otherwise it
// falls back to a linear header walk.
//
// Use reader.NewReader directly (with reader.WithCheckRecordNumberSequence
// or a custom buffer scan) for finer control over the scan.
func Open(r io.ReaderAt, opts ...ReaderOption) (*reader.Reader, error) {
	rd, err := reader.NewReader(r, opts...)
	if err != nil {
		return nil, err
	}

	if err := rd.ScanFile(false); err != nil {
		return nil, err
	}

	return rd, nil
}
