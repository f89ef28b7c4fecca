// Package errs defines the sentinel errors returned across the header, record,
// reader and writer packages. Callers match on these with errors.Is; the
// concrete error returned to a caller is usually one of these sentinels
// wrapped with fmt.Errorf("...: %w", ...) for context.
package errs

import "errors"

var (
	// Io wraps any short read/write or unexpected-EOF error from the
	// underlying file or buffer.
	Io = errors.New("hipo: io error")

	// NotHipo means the magic word did not match in either byte order.
	NotHipo = errors.New("hipo: not a valid hipo/evio stream")

	// BadVersion means the header's version field is not 6.
	BadVersion = errors.New("hipo: unsupported header version")

	// BadHeader means the header's internal lengths are inconsistent
	// (header-length-words != 14, index length neither 0 nor 4 times the
	// event count, record length too small to hold its payload, etc).
	BadHeader = errors.New("hipo: malformed header")

	// BadRecordNumber means check_record_number_sequence is enabled and a
	// scan observed a non-sequential record number.
	BadRecordNumber = errors.New("hipo: out-of-order record number")

	// BufferTooSmall means a caller-supplied destination buffer cannot
	// hold the requested event or user header at the requested offset.
	BufferTooSmall = errors.New("hipo: destination buffer too small")

	// IndexOutOfRange means an event ordinal fell outside [0, count).
	IndexOutOfRange = errors.New("hipo: event index out of range")

	// CompressError means a Compressor implementation rejected its input.
	CompressError = errors.New("hipo: compression error")

	// Alerted means a RecordSupply barrier wait was woken by ErrorAlert or
	// shutdown rather than by a published sequence.
	Alerted = errors.New("hipo: supply alerted")

	// RecordFull means RecordOutput.AddEvent found no room and the output
	// is not self-owned, so it cannot grow to make room.
	RecordFull = errors.New("hipo: record is full")

	// EventTooLarge means a single event exceeds the record's configured
	// max buffer size even after growing an empty, self-owned record.
	EventTooLarge = errors.New("hipo: event exceeds max buffer size")

	// ClosedSupply means an operation was attempted on a RecordSupply
	// after Close released all waiters.
	ClosedSupply = errors.New("hipo: supply closed")

	// NotEditable means an in-place structure edit was attempted on
	// something other than an uncompressed in-memory buffer.
	NotEditable = errors.New("hipo: buffer cannot be edited in place")
)
