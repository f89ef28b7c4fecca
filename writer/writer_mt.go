package writer

import (
	"fmt"
	"io"
	"sync"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/internal/options"
)

// WriterMT is the multi-threaded counterpart to Writer: a producer fills
// RecordOutputs drawn from a RecordSupply ring, a fixed pool of compressor
// goroutines build them concurrently, and a single writer goroutine streams
// the results to disk in strict sequence order.
//
// Records are written in producer-publish order regardless of which
// compressor finishes a given record first; a record's stamped record
// number always equals its ring sequence plus one.
//
// AddEvent and Close run on the caller's goroutine; everything else is
// internal.
type WriterMT struct {
	w      io.WriteSeeker
	engine endian.EndianEngine

	fileHeader    *header.FileHeader
	fileHeaderBuf [header.ByteLength]byte

	supply  *RecordSupply
	curItem *RecordRingItem
	curSeq  int64

	addTrailer      bool
	addTrailerIndex bool
	trailerIndex    []header.TrailerIndexEntry

	written      int64
	lastSeq      int64
	compressorWG sync.WaitGroup
	writerWG     sync.WaitGroup
}

// OpenMT writes the file header and starts compressorThreads compressor
// goroutines and one writer goroutine around a ring of ringSize record
// slots. ringSize must be a power of two and at least compressorThreads.
func OpenMT(w io.WriteSeeker, userHeader []byte, ringSize, compressorThreads int, compressionType format.CompressionType, wait WaitStrategy, opts ...options.Option[*WriterMT]) (*WriterMT, error) {
	supply, err := NewRecordSupply(ringSize, compressorThreads, compressionType, wait)
	if err != nil {
		return nil, err
	}

	wr := &WriterMT{
		w:          w,
		engine:     endian.GetLittleEndianEngine(),
		supply:     supply,
		addTrailer: true,
		lastSeq:    -1,
	}

	if err := options.Apply[*WriterMT](wr, opts...); err != nil {
		return nil, err
	}

	supply.SetEndian(wr.engine)

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

	wr.curItem, wr.curSeq, err = supply.Get()
	if err != nil {
		return nil, err
	}

	for k := 0; k < compressorThreads; k++ {
		wr.compressorWG.Add(1)
		go func(k int) {
			defer wr.compressorWG.Done()
			if err := supply.RunCompressor(k); err != nil {
				supply.ErrorAlert(err)
			}
		}(k)
	}

	wr.writerWG.Add(1)
	go wr.runWriter()

	return wr, nil
}

// WithMTEndian sets the byte order the file header and trailer are written
// in.
func WithMTEndian(engine endian.EndianEngine) options.Option[*WriterMT] {
	return options.NoError(func(w *WriterMT) { w.engine = engine })
}

// WithMTTrailer controls whether Close emits a trailer record and whether
// it carries a per-record index, mirroring Writer's WithTrailer.
func WithMTTrailer(addTrailer, addIndex bool) options.Option[*WriterMT] {
	return options.NoError(func(w *WriterMT) {
		w.addTrailer = addTrailer
		w.addTrailerIndex = addIndex
	})
}

// AddEvent appends data to the live slot's RecordOutput, publishing it and
// drawing a fresh slot from the ring first if it has no room.
func (w *WriterMT) AddEvent(data []byte) (bool, error) {
	if w.curItem.RecordOutput().AddEvent(data) {
		return true, nil
	}

	w.supply.Publish(w.curSeq)

	item, seq, err := w.supply.Get()
	if err != nil {
		return false, err
	}
	w.curItem, w.curSeq = item, seq

	if !w.curItem.RecordOutput().AddEvent(data) {
		return false, fmt.Errorf("%w: %d bytes", errs.EventTooLarge, len(data))
	}

	return true, nil
}

// runWriter drains the write barrier in strict sequence order, streaming
// each released record to disk and appending its trailer-index entry.
func (w *WriterMT) runWriter() {
	defer w.writerWG.Done()

	seq := int64(0)
	for {
		item, err := w.supply.GetToWrite(seq)
		if err != nil {
			return
		}

		if err := w.supply.waitNotDiskFull(); err != nil {
			return
		}

		n, werr := w.w.Write(item.built)
		if werr != nil {
			w.supply.ErrorAlert(fmt.Errorf("%w: write record: %w", errs.Io, werr))
			return
		}
		w.written += int64(n)
		w.lastSeq = seq

		w.trailerIndex = append(w.trailerIndex, header.TrailerIndexEntry{
			LengthBytes: uint32(len(item.built)),
			EventCount:  uint32(item.entries),
		})

		w.supply.ReleaseWriter(seq)
		seq++
	}
}

// Close publishes the final partially-filled slot, drains the compressor
// and writer goroutines, and — on success — writes a trailer and patches
// the file header the same way Writer.Close does.
func (w *WriterMT) Close() error {
	if w.curItem.RecordOutput().EventCount() > 0 {
		w.supply.Publish(w.curSeq)
	}

	w.supply.Close()
	w.compressorWG.Wait()
	w.writerWG.Wait()

	if err := w.supply.Err(); err != nil {
		return err
	}

	if w.addTrailer {
		trailerPos := w.written
		recordNumber := uint32(w.lastSeq + 2)

		index := w.trailerIndex
		if !w.addTrailerIndex {
			index = nil
		}

		trailerBuf := make([]byte, header.ByteLength+len(index)*8)
		n, err := header.WriteTrailer(trailerBuf, 0, recordNumber, w.engine, index)
		if err != nil {
			return err
		}

		if _, err := w.w.Write(trailerBuf[:n]); err != nil {
			return fmt.Errorf("%w: write trailer: %w", errs.Io, err)
		}

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

// RecordCount returns the number of records the writer goroutine has
// streamed to disk so far.
func (w *WriterMT) RecordCount() int { return len(w.trailerIndex) }

// Supply exposes the underlying RecordSupply, for callers that need its
// control surface — the disk-full condition in particular.
func (w *WriterMT) Supply() *RecordSupply { return w.supply }
