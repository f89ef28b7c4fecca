package record

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/compress"
	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/internal/options"
	"github.com/JeffersonLab/go-hipo/internal/pool"
)

// defaultMaxEventCount and defaultMaxBufferBytes match the values new
// RecordOutputs are given when the caller doesn't set their own.
const (
	defaultMaxEventCount  = 1000
	defaultMaxBufferBytes = 8 * 1024 * 1024
)

// RecordOutput accumulates events and builds the binary form of one record.
//
// Events and their lengths are appended to growable buffers as AddEvent is
// called; Build lays out the index, optional user header, and event payload,
// compresses if configured to, and writes the final header. A RecordOutput
// is constructed once and reused: Reset returns it to the empty state
// without touching its compression type, header kind, or byte order.
//
// A RecordOutput is not safe for concurrent use.
type RecordOutput struct {
	index  *pool.ByteBuffer
	events *pool.ByteBuffer

	// staging holds the index|userHeader|payload concatenation that
	// feeds the compressor; only allocated lazily, since uncompressed
	// records never need it.
	staging *pool.ByteBuffer

	target      []byte
	targetOwned bool

	maxEventCount  uint32
	maxBufferBytes uint32

	compressionType format.CompressionType
	headerKind      format.HeaderKind
	engine          endian.EndianEngine
	recordNumber    uint32
}

// NewRecordOutput returns an empty RecordOutput ready for AddEvent calls.
func NewRecordOutput(opts ...options.Option[*RecordOutput]) (*RecordOutput, error) {
	ro := &RecordOutput{
		maxEventCount:   defaultMaxEventCount,
		maxBufferBytes:  defaultMaxBufferBytes,
		compressionType: format.CompressionNone,
		headerKind:      format.KindRecord,
		engine:          endian.GetLittleEndianEngine(),
	}

	if err := options.Apply[*RecordOutput](ro, opts...); err != nil {
		return nil, err
	}

	ro.index = pool.NewByteBuffer(pool.RecordBufferDefaultSize)
	ro.events = pool.NewByteBuffer(pool.RecordBufferDefaultSize)

	if ro.target == nil {
		ro.targetOwned = true
		ro.target = make([]byte, recordBufferBytes(ro.maxBufferBytes))
	}

	return ro, nil
}

// WithMaxEventCount sets the hard upper bound on events this record may
// hold. AddEvent returns false once it is reached.
func WithMaxEventCount(n uint32) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) { ro.maxEventCount = n })
}

// WithMaxBufferBytes sets the uncompressed byte budget. AddEvent returns
// false once adding an event would exceed it, unless the record is empty
// and self-owned, in which case it grows instead.
func WithMaxBufferBytes(n uint32) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) { ro.maxBufferBytes = n })
}

// WithCompressionType sets the algorithm Build compresses the payload with.
func WithCompressionType(t format.CompressionType) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) { ro.compressionType = t })
}

// WithHeaderKind sets the header-kind tag Build stamps into the record
// header's bit-info.
func WithHeaderKind(k format.HeaderKind) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) { ro.headerKind = k })
}

// WithEndian sets the byte order Build writes the header and index in.
func WithEndian(engine endian.EndianEngine) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) { ro.engine = engine })
}

// WithTarget supplies a caller-owned destination buffer. Build writes into
// it directly and never reallocates it; an event that would overflow it
// fails AddEvent instead of growing.
func WithTarget(buf []byte) options.Option[*RecordOutput] {
	return options.NoError(func(ro *RecordOutput) {
		ro.target = buf
		ro.targetOwned = false
	})
}

// recordBufferBytes is the self-owned target size for a given uncompressed
// budget: 10% headroom over the budget, since a record's on-disk size
// (header + padding) is always a little larger than its raw payload budget.
func recordBufferBytes(maxBufferBytes uint32) int {
	return int(maxBufferBytes) + int(maxBufferBytes)/10
}

// SetCompressionType changes the algorithm used by future Build calls. It
// does not affect a build already in progress or already completed.
func (ro *RecordOutput) SetCompressionType(t format.CompressionType) { ro.compressionType = t }

// SetRecordNumber sets the record number Build stamps into the header.
func (ro *RecordOutput) SetRecordNumber(n uint32) { ro.recordNumber = n }

// SetEndian changes the byte order future Build calls write the header and
// index in. It must not be called once events have been added: the index
// entries already accumulated would keep their old order.
func (ro *RecordOutput) SetEndian(engine endian.EndianEngine) { ro.engine = engine }

// EventCount returns the number of events accumulated so far.
func (ro *RecordOutput) EventCount() int { return ro.index.Len() / 4 }

// roomForEvent reports whether an event of n bytes fits within
// maxBufferBytes alongside what's already accumulated. A caller-provided
// target additionally bounds the record at its own size, since it can never
// be reallocated.
func (ro *RecordOutput) roomForEvent(n int) bool {
	need := ro.index.Len() + 4 + ro.events.Len() + header.ByteLength + n

	if !ro.targetOwned && need > len(ro.target) {
		return false
	}

	return uint32(need) <= ro.maxBufferBytes
}

// AddEvent appends data as the next event. It returns false if the record
// has no room: either the event limit is reached, or the byte budget is
// exceeded and growing is not possible (the record already holds events, or
// its target buffer is caller-provided).
//
// A self-owned, still-empty record grows instead of failing a first event
// that alone exceeds the configured budget.
func (ro *RecordOutput) AddEvent(data []byte) bool {
	if ro.EventCount() >= int(ro.maxEventCount) {
		return false
	}

	if !ro.roomForEvent(len(data)) {
		if ro.EventCount() != 0 || !ro.targetOwned {
			return false
		}

		ro.growForEvent(len(data))
	}

	ro.events.MustWrite(data)

	var lenBuf [4]byte
	ro.engine.PutUint32(lenBuf[:], uint32(len(data)))
	ro.index.MustWrite(lenBuf[:])

	return true
}

// growForEvent enlarges maxBufferBytes and the self-owned target to fit an
// event of n bytes, and resets accumulated state — compression type, header
// kind, and byte order are untouched.
func (ro *RecordOutput) growForEvent(n int) {
	ro.maxBufferBytes = uint32(n) + 1024*1024
	ro.target = make([]byte, recordBufferBytes(ro.maxBufferBytes))
	ro.index.Reset()
	ro.events.Reset()
}

// Reset returns the record to the empty state. Compression type, header
// kind, and byte order are preserved.
func (ro *RecordOutput) Reset() {
	ro.index.Reset()
	ro.events.Reset()
}

// Build lays out and compresses the accumulated events with no user header,
// and returns the ready-to-read record slice.
func (ro *RecordOutput) Build() ([]byte, error) {
	return ro.build(nil)
}

// BuildWithUserHeader is Build with an optional user header included in the
// record's data section, just before the event payload.
func (ro *RecordOutput) BuildWithUserHeader(userHeader []byte) ([]byte, error) {
	return ro.build(userHeader)
}

func (ro *RecordOutput) build(userHeader []byte) ([]byte, error) {
	eventCount := ro.EventCount()

	if eventCount == 0 && len(userHeader) == 0 {
		h := header.NewRecordHeader(ro.headerKind, ro.engine)
		h.Number = ro.recordNumber
		h.LengthWords = header.Words(header.ByteLength)

		if err := ro.ensureTargetCapacity(header.ByteLength); err != nil {
			return nil, err
		}
		if err := header.WriteRecordHeader(ro.target, 0, h); err != nil {
			return nil, err
		}

		return ro.target[:header.ByteLength], nil
	}

	h := header.NewRecordHeader(ro.headerKind, ro.engine)
	h.Number = ro.recordNumber
	h.EventCount = uint32(eventCount)
	h.IndexLength = uint32(ro.index.Len())
	h.UserHeaderLength = uint32(len(userHeader))
	h.DataLength = uint32(ro.events.Len())

	uncompressedData := int(h.UncompressedRecordLength()) - header.ByteLength

	if ro.compressionType == format.CompressionNone {
		if err := ro.ensureTargetCapacity(header.ByteLength + uncompressedData); err != nil {
			return nil, err
		}

		pos := header.ByteLength
		pos += copy(ro.target[pos:], ro.index.Bytes())
		pos += copy(ro.target[pos:], userHeader)
		if pad := int(header.PaddedLen(uint32(len(userHeader)))) - len(userHeader); pad > 0 {
			clearRange(ro.target[pos : pos+pad])
			pos += pad
		}
		pos += copy(ro.target[pos:], ro.events.Bytes())
		if pad := int(header.PaddedLen(uint32(ro.events.Len()))) - ro.events.Len(); pad > 0 {
			clearRange(ro.target[pos : pos+pad])
		}

		h.CompressionType = format.CompressionNone
		h.CompressedLength = 0
		h.LengthWords = header.Words(header.ByteLength + uint32(uncompressedData))

		if err := header.WriteRecordHeader(ro.target, 0, h); err != nil {
			return nil, err
		}

		return ro.target[:header.ByteLength+uncompressedData], nil
	}

	ro.fillStaging(userHeader)

	codec, err := compress.New(ro.compressionType)
	if err != nil {
		return nil, err
	}

	if err := ro.ensureTargetCapacity(header.ByteLength + ro.staging.Len()); err != nil {
		return nil, err
	}

	var compressedLen int
	bc, bounded := codec.(compress.BoundedCodec)
	if bounded {
		compressedLen, err = bc.CompressInto(ro.staging.Bytes(), ro.target[header.ByteLength:])
	}
	if !bounded || err != nil {
		// Either the codec has no bounded API, or the staging-sized
		// destination didn't fit (possible for incompressible input);
		// fall back to an intermediate allocation sized by the codec.
		var out []byte
		out, err = codec.Compress(ro.staging.Bytes())
		if err != nil {
			return nil, err
		}
		if err := ro.ensureTargetCapacity(header.ByteLength + len(out)); err != nil {
			return nil, err
		}
		compressedLen = copy(ro.target[header.ByteLength:], out)
	}

	h.CompressionType = ro.compressionType
	h.CompressedLength = uint32(compressedLen)
	h.LengthWords = header.Words(header.ByteLength + header.PaddedLen(uint32(compressedLen)))

	if err := header.WriteRecordHeader(ro.target, 0, h); err != nil {
		return nil, err
	}

	recordLen := header.ByteLength + int(header.PaddedLen(uint32(compressedLen)))
	if pad := recordLen - header.ByteLength - compressedLen; pad > 0 {
		clearRange(ro.target[header.ByteLength+compressedLen : recordLen])
	}

	return ro.target[:recordLen], nil
}

// fillStaging concatenates index | padded(userHeader) | events into the
// staging buffer, the input to the compressor.
func (ro *RecordOutput) fillStaging(userHeader []byte) {
	if ro.staging == nil {
		ro.staging = pool.NewByteBuffer(pool.RecordBufferDefaultSize)
	}
	ro.staging.Reset()

	ro.staging.MustWrite(ro.index.Bytes())
	ro.staging.MustWrite(userHeader)

	if pad := int(header.PaddedLen(uint32(len(userHeader)))) - len(userHeader); pad > 0 {
		start := ro.staging.Len()
		ro.staging.ExtendOrGrow(pad)
		clearRange(ro.staging.Slice(start, start+pad))
	}

	ro.staging.MustWrite(ro.events.Bytes())
}

// clearRange zeroes b in place.
func clearRange(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ensureTargetCapacity grows a self-owned target to hold n bytes, or fails
// with errs.BufferTooSmall if the target is caller-provided and too small.
func (ro *RecordOutput) ensureTargetCapacity(n int) error {
	if len(ro.target) >= n {
		return nil
	}

	if !ro.targetOwned {
		return fmt.Errorf("%w: record needs %d bytes, target has %d", errs.BufferTooSmall, n, len(ro.target))
	}

	grown := make([]byte, n)
	copy(grown, ro.target)
	ro.target = grown

	return nil
}
