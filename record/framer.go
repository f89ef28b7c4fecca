// Package record implements the record input and output paths: decoding one
// record's events out of a file or buffer, and accumulating events into a
// freshly built record ready to write.
package record

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
)

// EventFramer finds the byte length of the next event in a buffer without
// needing a length index. RecordInput uses it only when a record's wire
// index length is 0, to rebuild the per-event lengths EVIO events are
// required to be self-describing enough to recover.
type EventFramer interface {
	// EventLength returns the byte length of the event starting at
	// buf[pos:].
	EventLength(buf []byte, pos int, engine endian.EndianEngine) (int, error)
}

// EVIOFramer implements EventFramer using the EVIO convention: an event's
// first 32-bit word holds its length in words minus one, so the event's
// total byte length is 4*(word0+1).
type EVIOFramer struct{}

func (EVIOFramer) EventLength(buf []byte, pos int, engine endian.EndianEngine) (int, error) {
	if pos+4 > len(buf) {
		return 0, fmt.Errorf("%w: event framer needs 4 bytes at offset %d, have %d", errs.Io, pos, len(buf)-pos)
	}

	word0 := engine.Uint32(buf[pos:])

	return int(word0+1) * 4, nil
}
