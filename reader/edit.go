package reader

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/record"
)

// Structure edits splice bytes into or out of one event of an uncompressed
// in-memory buffer, patch the event's own leading length word and the
// containing record's header words to match, and rescan the buffer so every
// position and index the Reader holds is rebuilt against the new layout.
//
// They are refused on file-backed readers and on buffers that held any
// compressed record: splicing a compressed payload in place is not
// meaningful. Any trailer index that followed the edited record in the
// original stream is left stale; a buffer scan never consults one.

// editable fails unless this reader scanned an uncompressed in-memory
// buffer.
func (r *Reader) editable() error {
	if r.buffer == nil || r.file != nil {
		return fmt.Errorf("%w: structure edits need a buffer reader", errs.NotEditable)
	}
	if r.staging != nil {
		return fmt.Errorf("%w: buffer holds compressed records", errs.NotEditable)
	}
	if len(r.positions) == 0 {
		return fmt.Errorf("%w: buffer has not been scanned", errs.NotEditable)
	}

	return nil
}

// eventExtent returns the absolute byte range [start, end) of event intra
// within the record at rp, walking either the record's wire index or, when
// the record was written without one, the events' own framing words.
func (r *Reader) eventExtent(rp RecordPosition, h *header.RecordHeader, intra int) (start, end int, err error) {
	base := int(rp.ByteOffset)
	payloadStart := base + header.ByteLength + int(h.IndexLength) + int(header.PaddedLen(h.UserHeaderLength))

	if h.IndexLength > 0 {
		offset := 0
		for i := 0; i < intra; i++ {
			offset += int(h.Endian.Uint32(r.buffer[base+header.ByteLength+4*i:]))
		}
		length := int(h.Endian.Uint32(r.buffer[base+header.ByteLength+4*intra:]))

		return payloadStart + offset, payloadStart + offset + length, nil
	}

	framer := record.EVIOFramer{}
	pos := payloadStart
	for i := 0; i < intra; i++ {
		n, err := framer.EventLength(r.buffer, pos, h.Endian)
		if err != nil {
			return 0, 0, err
		}
		pos += n
	}
	n, err := framer.EventLength(r.buffer, pos, h.Endian)
	if err != nil {
		return 0, 0, err
	}

	return pos, pos + n, nil
}

// patchEditedRecord adjusts the length bookkeeping around an edited event by
// delta bytes (positive for an insertion, negative for a removal): the
// event's leading length word, the record's wire index entry for that event,
// and the record header's record-length and uncompressed-data-length words.
func (r *Reader) patchEditedRecord(rp RecordPosition, h *header.RecordHeader, intra, evStart, delta int) {
	base := int(rp.ByteOffset)
	engine := h.Endian

	w0 := engine.Uint32(r.buffer[evStart:])
	engine.PutUint32(r.buffer[evStart:], uint32(int(w0)+delta/4))

	if h.IndexLength > 0 {
		entry := base + header.ByteLength + 4*intra
		n := engine.Uint32(r.buffer[entry:])
		engine.PutUint32(r.buffer[entry:], uint32(int(n)+delta))
	}

	lengthWords := engine.Uint32(r.buffer[base:])
	engine.PutUint32(r.buffer[base:], uint32(int(lengthWords)+delta/4))

	dataLength := engine.Uint32(r.buffer[base+32:])
	engine.PutUint32(r.buffer[base+32:], uint32(int(dataLength)+delta))
}

// AddStructure appends payload at the end of global event eventOrdinal and
// rescans the buffer. payload's length must be a positive multiple of 4, the
// word size every EVIO structure is aligned to.
func (r *Reader) AddStructure(eventOrdinal int, payload []byte) error {
	if err := r.editable(); err != nil {
		return err
	}
	if len(payload) == 0 || len(payload)%4 != 0 {
		return fmt.Errorf("%w: payload length %d is not a positive multiple of 4", errs.NotEditable, len(payload))
	}

	k, intra, ok := r.index.Locate(eventOrdinal)
	if !ok {
		return fmt.Errorf("%w: event %d, have %d", errs.IndexOutOfRange, eventOrdinal, r.index.MaxEvents())
	}

	rp := r.positions[k]
	h, err := header.ReadRecordHeader(r.buffer, int(rp.ByteOffset), r.engine)
	if err != nil {
		return err
	}

	evStart, evEnd, err := r.eventExtent(rp, h, intra)
	if err != nil {
		return err
	}

	edited := make([]byte, len(r.buffer)+len(payload))
	copy(edited, r.buffer[:evEnd])
	copy(edited[evEnd:], payload)
	copy(edited[evEnd+len(payload):], r.buffer[evEnd:])
	r.buffer = edited

	r.patchEditedRecord(rp, h, intra, evStart, len(payload))

	return r.ScanBuffer()
}

// RemoveStructure removes length bytes starting at byte offset within global
// event eventOrdinal's payload and rescans the buffer. offset and length
// must be multiples of 4, offset must be at least 4 (an event's leading
// length word cannot be removed), and the range must lie inside the event.
func (r *Reader) RemoveStructure(eventOrdinal, offset, length int) error {
	if err := r.editable(); err != nil {
		return err
	}
	if length <= 0 || length%4 != 0 || offset%4 != 0 || offset < 4 {
		return fmt.Errorf("%w: range (%d, %d) is not word-aligned inside the event", errs.NotEditable, offset, length)
	}

	k, intra, ok := r.index.Locate(eventOrdinal)
	if !ok {
		return fmt.Errorf("%w: event %d, have %d", errs.IndexOutOfRange, eventOrdinal, r.index.MaxEvents())
	}

	rp := r.positions[k]
	h, err := header.ReadRecordHeader(r.buffer, int(rp.ByteOffset), r.engine)
	if err != nil {
		return err
	}

	evStart, evEnd, err := r.eventExtent(rp, h, intra)
	if err != nil {
		return err
	}
	if evStart+offset+length > evEnd {
		return fmt.Errorf("%w: range (%d, %d) extends past the event's %d bytes", errs.NotEditable, offset, length, evEnd-evStart)
	}

	cut := evStart + offset
	edited := make([]byte, len(r.buffer)-length)
	copy(edited, r.buffer[:cut])
	copy(edited[cut:], r.buffer[cut+length:])
	r.buffer = edited

	r.patchEditedRecord(rp, h, intra, evStart, -length)

	return r.ScanBuffer()
}
