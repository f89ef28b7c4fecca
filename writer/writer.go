// Package writer implements the single-threaded and multi-threaded
// writer paths for HIPO/EVIO v6 files: building records with a RecordOutput,
// streaming them to disk, and patching the file header's trailer-position
// and record-count fields once the stream is known to be complete.
package writer

import (
	"fmt"
	"io"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/internal/options"
	"github.com/JeffersonLab/go-hipo/record"
)

// Writer streams events into records and records into a file, single
// record at a time, on the caller's goroutine. It is the ST counterpart to
// WriterMT.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	w      io.WriteSeeker
	engine endian.EndianEngine

	fileHeader    *header.FileHeader
	fileHeaderBuf [header.ByteLength]byte

	ro           *record.RecordOutput
	recordNumber uint32

	addTrailer      bool
	addTrailerIndex bool
	trailerIndex    []header.TrailerIndexEntry

	written int64
}

// Open writes a file header (with an optional user header right after it)
// to w at its current position, and returns a Writer ready for AddEvent
// calls.
func Open(w io.WriteSeeker, userHeader []byte, opts ...options.Option[*Writer]) (*Writer, error) {
	ro, err := record.NewRecordOutput()
	if err != nil {
		return nil, err
	}

	wr := &Writer{
		w:          w,
		engine:     endian.GetLittleEndianEngine(),
		ro:         ro,
		addTrailer: true,
	}

	if err := options.Apply[*Writer](wr, opts...); err != nil {
		return nil, err
	}

	wr.ro.SetEndian(wr.engine)

	wr.fileHeader = header.NewFileHeader(format.KindHipoFile1, wr.engine)
	wr.fileHeader.UserHeaderLength = uint32(len(userHeader))

	if err := header.WriteFileHeader(wr.fileHeaderBuf[:], 0, wr.fileHeader); err != nil {
		return nil, err
	}

	n, err := w.Write(wr.fileHeaderBuf[:])
	if err != nil {
		return nil, fmt.Errorf("%w: write file header: %w", errs.Io, err)
	}
	wr.written += int64(n)

	if len(userHeader) > 0 {
		padded := make([]byte, header.PaddedLen(uint32(len(userHeader))))
		copy(padded, userHeader)
		n, err := w.Write(padded)
		if err != nil {
			return nil, fmt.Errorf("%w: write file user header: %w", errs.Io, err)
		}
		wr.written += int64(n)
	}

	return wr, nil
}

// WithEndian sets the byte order the file header, records, and trailer are
// written in.
func WithEndian(engine endian.EndianEngine) options.Option[*Writer] {
	return options.NoError(func(w *Writer) { w.engine = engine })
}

// WithCompressionType sets the algorithm every record's payload is
// compressed with.
func WithCompressionType(t format.CompressionType) options.Option[*Writer] {
	return options.NoError(func(w *Writer) { w.ro.SetCompressionType(t) })
}

// WithTrailer controls whether Close emits a trailer record, and whether
// that trailer carries a per-record lookup index.
func WithTrailer(addTrailer, addIndex bool) options.Option[*Writer] {
	return options.NoError(func(w *Writer) {
		w.addTrailer = addTrailer
		w.addTrailerIndex = addIndex
	})
}

// AddEvent appends data as the next event to the live record, flushing the
// current record to disk first if it has no room. It returns false only
// when data itself cannot be made to fit even in a freshly reset record.
func (w *Writer) AddEvent(data []byte) (bool, error) {
	if w.ro.AddEvent(data) {
		return true, nil
	}

	if err := w.flush(); err != nil {
		return false, err
	}

	if !w.ro.AddEvent(data) {
		return false, fmt.Errorf("%w: %d bytes", errs.EventTooLarge, len(data))
	}

	return true, nil
}

// flush builds the live record (if it holds any events) and streams it to
// disk, appending its (length, event-count) pair to the pending trailer
// index.
func (w *Writer) flush() error {
	if w.ro.EventCount() == 0 {
		return nil
	}

	w.recordNumber++
	w.ro.SetRecordNumber(w.recordNumber)

	buf, err := w.ro.Build()
	if err != nil {
		return err
	}

	n, err := w.w.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: write record: %w", errs.Io, err)
	}
	w.written += int64(n)

	w.trailerIndex = append(w.trailerIndex, header.TrailerIndexEntry{
		LengthBytes: uint32(len(buf)),
		EventCount:  uint32(w.ro.EventCount()),
	})

	w.ro.Reset()

	return nil
}

// Close flushes any pending record, optionally writes a trailer, and
// patches the file header in place: the record-count word always, plus the
// trailer-position and has-trailer-with-index bits when a trailer was
// written.
func (w *Writer) Close() error {
	if err := w.flush(); err != nil {
		return err
	}

	if w.addTrailer {
		trailerPos := w.written

		index := w.trailerIndex
		if !w.addTrailerIndex {
			index = nil
		}

		trailerBuf := make([]byte, header.ByteLength+len(index)*8)
		n, err := header.WriteTrailer(trailerBuf, 0, w.recordNumber+1, w.engine, index)
		if err != nil {
			return err
		}

		wn, err := w.w.Write(trailerBuf[:n])
		if err != nil {
			return fmt.Errorf("%w: write trailer: %w", errs.Io, err)
		}
		w.written += int64(wn)

		if w.addTrailerIndex {
			w.fileHeader.Info = w.fileHeader.Info.WithHasTrailerWithIndex(true)
		}

		header.PatchUint64(w.fileHeaderBuf[:], 40, w.engine, uint64(trailerPos))
		header.PatchUint32(w.fileHeaderBuf[:], 20, w.engine, uint32(w.fileHeader.Info))
	}

	header.PatchUint32(w.fileHeaderBuf[:], 12, w.engine, uint32(len(w.trailerIndex)))

	if _, err := w.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to file header: %w", errs.Io, err)
	}
	if _, err := w.w.Write(w.fileHeaderBuf[:]); err != nil {
		return fmt.Errorf("%w: patch file header: %w", errs.Io, err)
	}

	return nil
}
