// Package reader implements random and sequential event access over a
// HIPO/EVIO v6 file or in-memory buffer: scanning records to build a
// position index, then serving events through an owned RecordInput.
package reader

import (
	"fmt"
	"io"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/fileindex"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/internal/options"
	"github.com/JeffersonLab/go-hipo/internal/pool"
	"github.com/JeffersonLab/go-hipo/record"
)

// RecordPosition locates one record discovered during a scan.
type RecordPosition struct {
	ByteOffset  int64
	LengthBytes uint32
	EventCount  uint32
}

// direction tracks which way a sequential cursor last moved, so a reversal
// can compensate with one extra step instead of re-serving the event just
// returned.
type direction int

const (
	none direction = iota
	forward
	backward
)

// Reader serves events out of a file or buffer previously written by Writer
// or WriterMT. It owns a RecordInput and a FileEventIndex; scanning builds
// the position index once, and GetEvent/GetNextEvent/GetPrevEvent read
// through it afterward.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	file   io.ReaderAt
	buffer []byte

	fileHeader *header.FileHeader
	positions  []RecordPosition
	index      *fileindex.EventIndex

	ri            *record.RecordInput
	loadedRecord  int
	defaultEngine endian.EndianEngine
	engine        endian.EndianEngine

	checkRecordNumberSequence bool

	// seqEvent is the next event GetNextEvent serves; -1 marks a cursor
	// parked before event 0 after GetPrevEvent walked off the front.
	seqEvent      int
	lastDirection direction

	staging *pool.ByteBuffer
}

// NewReader returns a Reader that reads from r, a file opened for random
// access.
func NewReader(r io.ReaderAt, opts ...options.Option[*Reader]) (*Reader, error) {
	return newReader(r, nil, opts...)
}

// NewBufferReader returns a Reader over an in-memory buffer. The Reader
// keeps buf and reads events from it, but never writes to it: structure
// edits work on a fresh copy.
func NewBufferReader(buf []byte, opts ...options.Option[*Reader]) (*Reader, error) {
	return newReader(nil, buf, opts...)
}

func newReader(r io.ReaderAt, buf []byte, opts ...options.Option[*Reader]) (*Reader, error) {
	ri, err := record.NewRecordInput()
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		file:          r,
		buffer:        buf,
		index:         fileindex.New(),
		ri:            ri,
		loadedRecord:  -1,
		defaultEngine: endian.GetLittleEndianEngine(),
	}

	if err := options.Apply[*Reader](rd, opts...); err != nil {
		return nil, err
	}

	return rd, nil
}

// WithDefaultEndian sets the byte order assumed before a scan detects the
// file's or buffer's actual order from its magic word.
func WithDefaultEndian(engine endian.EndianEngine) options.Option[*Reader] {
	return options.NoError(func(r *Reader) { r.defaultEngine = engine })
}

// WithCheckRecordNumberSequence enables failing a scan with
// errs.BadRecordNumber when record numbers are not 1-indexed and
// contiguous.
func WithCheckRecordNumberSequence(check bool) options.Option[*Reader] {
	return options.NoError(func(r *Reader) { r.checkRecordNumberSequence = check })
}

// Close releases the staging buffer a compressed buffer scan allocates,
// returning it to the shared file-buffer pool. It is a no-op for a reader
// that never scanned a compressed buffer.
func (r *Reader) Close() {
	if r.staging != nil {
		pool.PutFileBuffer(r.staging)
		r.staging = nil
	}
}

// RecordCount returns the number of records found by the last scan.
func (r *Reader) RecordCount() int { return len(r.positions) }

// MaxEvents returns the total number of events found by the last scan.
func (r *Reader) MaxEvents() int { return int(r.index.MaxEvents()) }

// Positions returns the RecordPosition list built by the last scan.
func (r *Reader) Positions() []RecordPosition { return r.positions }

// ScanFile builds the position index for a file reader. When force is
// false and the file header advertises a trailer with index, the index is
// read from the trailer instead of walking every record; otherwise it falls
// back to forceScanFile.
func (r *Reader) ScanFile(force bool) error {
	if r.file == nil {
		return fmt.Errorf("%w: ScanFile requires a file reader", errs.Io)
	}

	var headerBuf [header.ByteLength]byte
	if _, err := r.file.ReadAt(headerBuf[:], 0); err != nil {
		return fmt.Errorf("%w: read file header: %w", errs.Io, err)
	}

	fh, err := header.ReadFileHeader(headerBuf[:], 0, r.defaultEngine)
	if err != nil {
		return err
	}
	r.fileHeader = fh

	if !force && fh.HasTrailerWithIndex() && fh.TrailerPosition != 0 {
		if err := r.scanFromTrailer(fh); err == nil {
			return nil
		}
		// Fall through to a full scan if the trailer can't be read.
	}

	return r.forceScanFile(fh)
}

func (r *Reader) scanFromTrailer(fh *header.FileHeader) error {
	var trailerHeaderBuf [header.ByteLength]byte
	off := int64(fh.TrailerPosition)
	if _, err := r.file.ReadAt(trailerHeaderBuf[:], off); err != nil {
		return fmt.Errorf("%w: read trailer header: %w", errs.Io, err)
	}

	th, err := header.ReadRecordHeader(trailerHeaderBuf[:], 0, fh.Endian)
	if err != nil {
		return err
	}

	count := int(th.DataLength / 8)
	indexBuf := make([]byte, count*8)
	if _, err := r.file.ReadAt(indexBuf, off+int64(header.ByteLength)); err != nil {
		return fmt.Errorf("%w: read trailer index: %w", errs.Io, err)
	}

	entries, err := header.ReadTrailerIndex(indexBuf, 0, count, fh.Endian)
	if err != nil {
		return err
	}

	r.resetScanState(fh.Endian)

	pos := int64(header.ByteLength) + int64(header.PaddedLen(fh.UserHeaderLength))
	for _, e := range entries {
		r.positions = append(r.positions, RecordPosition{
			ByteOffset:  pos,
			LengthBytes: e.LengthBytes,
			EventCount:  e.EventCount,
		})
		r.index.AddRecord(e.EventCount)
		pos += int64(e.LengthBytes)
	}

	return nil
}

// forceScanFile walks records linearly from just past the file header,
// reading each one's header to record its position, length, and event
// count.
func (r *Reader) forceScanFile(fh *header.FileHeader) error {
	r.resetScanState(fh.Endian)

	pos := int64(header.ByteLength) + int64(header.PaddedLen(fh.UserHeaderLength))
	expectedNumber := uint32(1)

	var headerBuf [header.ByteLength]byte
	for {
		n, err := r.file.ReadAt(headerBuf[:], pos)
		if err == io.EOF && n == 0 {
			break
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("%w: read record header at %d: %w", errs.Io, pos, err)
		}

		h, err := header.ReadRecordHeader(headerBuf[:], 0, fh.Endian)
		if err != nil {
			return err
		}

		if h.IsTrailer() {
			break
		}

		if r.checkRecordNumberSequence && h.Number != expectedNumber {
			return fmt.Errorf("%w: record number %d, want %d", errs.BadRecordNumber, h.Number, expectedNumber)
		}
		expectedNumber++

		lengthBytes := h.LengthWords * 4
		r.positions = append(r.positions, RecordPosition{
			ByteOffset:  pos,
			LengthBytes: lengthBytes,
			EventCount:  h.EventCount,
		})
		r.index.AddRecord(h.EventCount)

		pos += int64(lengthBytes)
	}

	return nil
}

// ScanBuffer builds the position index for an in-memory buffer. Compressed
// records are decompressed into an owned staging buffer first so that
// GetEvent can slice events out of uncompressed bytes uniformly.
func (r *Reader) ScanBuffer() error {
	if r.buffer == nil {
		return fmt.Errorf("%w: ScanBuffer requires a buffer reader", errs.Io)
	}

	first, err := header.ReadRecordHeader(r.buffer, 0, r.defaultEngine)
	if err != nil {
		return err
	}

	if first.CompressionType.IsCompressed() {
		return r.scanCompressedBuffer(first.Endian)
	}

	return r.scanUncompressedBuffer(r.buffer, first.Endian)
}

// resetScanState clears everything a scan rebuilds: the position list, the
// event index, the sequential cursor, and the record cached in RecordInput.
func (r *Reader) resetScanState(engine endian.EndianEngine) {
	r.positions = r.positions[:0]
	r.index.Reset()
	r.engine = engine
	r.loadedRecord = -1
	r.seqEvent = 0
	r.lastDirection = none
}

func (r *Reader) scanUncompressedBuffer(buf []byte, engine endian.EndianEngine) error {
	r.resetScanState(engine)

	pos := 0
	expectedNumber := uint32(1)

	for pos < len(buf) {
		h, err := header.ReadRecordHeader(buf, pos, engine)
		if err != nil {
			return err
		}

		if h.IsTrailer() {
			break
		}

		if r.checkRecordNumberSequence && h.Number != expectedNumber {
			return fmt.Errorf("%w: record number %d, want %d", errs.BadRecordNumber, h.Number, expectedNumber)
		}
		expectedNumber++

		lengthBytes := h.LengthWords * 4
		r.positions = append(r.positions, RecordPosition{
			ByteOffset:  int64(pos),
			LengthBytes: lengthBytes,
			EventCount:  h.EventCount,
		})
		r.index.AddRecord(h.EventCount)

		pos += int(lengthBytes)
	}

	r.buffer = buf

	return nil
}

// scanCompressedBuffer decompresses every record of the original buffer
// into an owned staging buffer, then scans that the same way as an
// uncompressed one.
func (r *Reader) scanCompressedBuffer(engine endian.EndianEngine) error {
	if r.staging == nil {
		r.staging = pool.GetFileBuffer()
	}
	r.staging.Reset()

	pos := 0
	for pos < len(r.buffer) {
		h, err := header.ReadRecordHeader(r.buffer, pos, engine)
		if err != nil {
			return err
		}

		if h.IsTrailer() {
			break
		}

		uncompressedLen := int(h.UncompressedRecordLength())
		start := r.staging.Len()
		r.staging.ExtendOrGrow(uncompressedLen)

		n, err := record.UncompressRecord(r.buffer, pos, r.staging.Slice(start, start+uncompressedLen), h)
		if err != nil {
			return err
		}
		r.staging.SetLength(start + n)

		pos += int(h.LengthWords) * 4
	}

	return r.scanUncompressedBuffer(r.staging.Bytes(), engine)
}

// eventAt serves global event e, loading its record through the owned
// RecordInput if the cursor crossed into a new one. e must already be
// range-checked.
func (r *Reader) eventAt(e int) ([]byte, error) {
	changed := r.index.SetEvent(e)
	if changed || r.loadedRecord != r.index.CurrentRecord() {
		if err := r.loadRecord(r.index.CurrentRecord()); err != nil {
			return nil, err
		}
	}

	return r.ri.GetEvent(r.index.IntraRecord()), nil
}

// GetEvent returns global event e's bytes. It also repositions the
// sequential cursor: a following GetNextEvent serves e+1 and a following
// GetPrevEvent serves e-1.
func (r *Reader) GetEvent(e int) ([]byte, error) {
	if e < 0 || e >= int(r.index.MaxEvents()) {
		return nil, fmt.Errorf("%w: event %d, have %d", errs.IndexOutOfRange, e, r.index.MaxEvents())
	}

	b, err := r.eventAt(e)
	if err != nil {
		return nil, err
	}

	r.seqEvent = e + 1
	r.lastDirection = forward

	return b, nil
}

// GetNextEvent returns the next event in sequence, starting from event 0 on
// a fresh reader. A switch from GetPrevEvent compensates with one extra step
// so the event just served is never served again. Past the last event it
// returns nil, nil.
func (r *Reader) GetNextEvent() ([]byte, error) {
	if r.lastDirection == backward {
		r.seqEvent++
	}
	r.lastDirection = forward

	max := int(r.index.MaxEvents())
	if r.seqEvent >= max {
		r.seqEvent = max + 1
		return nil, nil
	}

	e := r.seqEvent
	r.seqEvent = e + 1

	return r.eventAt(e)
}

// GetPrevEvent is GetNextEvent's mirror: it walks the event sequence
// backward and returns nil, nil once the cursor moves past event 0.
func (r *Reader) GetPrevEvent() ([]byte, error) {
	if r.lastDirection == forward {
		r.seqEvent--
	}
	r.lastDirection = backward

	r.seqEvent--
	if r.seqEvent < 0 {
		r.seqEvent = -1
		return nil, nil
	}

	return r.eventAt(r.seqEvent)
}

func (r *Reader) loadRecord(i int) error {
	pos := r.positions[i]

	var err error
	if r.file != nil {
		err = r.ri.ReadRecordFile(r.file, pos.ByteOffset)
	} else {
		err = r.ri.ReadRecordBuffer(r.buffer, int(pos.ByteOffset))
	}
	if err != nil {
		return err
	}

	r.loadedRecord = i

	return nil
}
