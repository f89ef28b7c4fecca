package record

import (
	"fmt"
	"io"

	"github.com/JeffersonLab/go-hipo/compress"
	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/internal/options"
	"github.com/JeffersonLab/go-hipo/internal/pool"
)

// RecordInput reads one record at a time, decompressing its payload into
// buffers it owns and reuses across reads.
//
// After ReadRecordFile or ReadRecordBuffer returns, the event-length index
// held internally has been rewritten in place from per-event lengths to
// cumulative end-offsets: index[i] is the byte offset, within the event
// payload, just past event i. This is a deliberate space reuse, not an
// incidental detail — GetEvent and GetEventInto rely on it.
//
// A RecordInput is not safe for concurrent use; callers sequence reads and
// accessor calls themselves.
type RecordInput struct {
	header *header.RecordHeader

	headerBuf       [header.ByteLength]byte
	compressedBuf   *pool.ByteBuffer
	uncompressedBuf *pool.ByteBuffer

	defaultEngine endian.EndianEngine
	framer        EventFramer
}

// NewRecordInput returns a RecordInput ready to read records, little-endian
// by default until a read detects otherwise.
func NewRecordInput(opts ...options.Option[*RecordInput]) (*RecordInput, error) {
	ri := &RecordInput{
		compressedBuf:   pool.NewByteBuffer(pool.RecordBufferDefaultSize),
		uncompressedBuf: pool.NewByteBuffer(pool.RecordBufferDefaultSize),
		defaultEngine:   endian.GetLittleEndianEngine(),
		framer:          EVIOFramer{},
	}

	if err := options.Apply[*RecordInput](ri, opts...); err != nil {
		return nil, err
	}

	return ri, nil
}

// WithDefaultEndian sets the byte order RecordInput assumes before a read
// auto-detects the record's actual order from its magic word.
func WithDefaultEndian(engine endian.EndianEngine) options.Option[*RecordInput] {
	return options.NoError(func(ri *RecordInput) { ri.defaultEngine = engine })
}

// WithEventFramer overrides the EventFramer used to reconstruct a missing
// per-event index. The default, EVIOFramer, is correct for any standard
// EVIO-framed event stream.
func WithEventFramer(f EventFramer) options.Option[*RecordInput] {
	return options.NoError(func(ri *RecordInput) { ri.framer = f })
}

// Header returns the most recently read record's header.
func (ri *RecordInput) Header() *header.RecordHeader { return ri.header }

// EventCount returns the most recently read record's event count.
func (ri *RecordInput) EventCount() int {
	if ri.header == nil {
		return 0
	}

	return int(ri.header.EventCount)
}

// ReadRecordFile reads one record starting at byte offset in r.
func (ri *RecordInput) ReadRecordFile(r io.ReaderAt, offset int64) error {
	if _, err := r.ReadAt(ri.headerBuf[:], offset); err != nil {
		return fmt.Errorf("%w: read record header: %w", errs.Io, err)
	}

	h, err := header.ReadRecordHeader(ri.headerBuf[:], 0, ri.defaultEngine)
	if err != nil {
		return err
	}
	ri.header = h

	payloadLen := int(h.LengthWords)*4 - header.ByteLength
	ri.compressedBuf.Reset()
	ri.compressedBuf.ExtendOrGrow(payloadLen)
	if _, err := r.ReadAt(ri.compressedBuf.Bytes(), offset+int64(header.ByteLength)); err != nil {
		return fmt.Errorf("%w: read record payload: %w", errs.Io, err)
	}

	return ri.decode(ri.compressedBuf.Bytes())
}

// ReadRecordBuffer reads one record starting at byte offset in buf. buf is
// only read, never retained past the call.
func (ri *RecordInput) ReadRecordBuffer(buf []byte, offset int) error {
	h, err := header.ReadRecordHeader(buf, offset, ri.defaultEngine)
	if err != nil {
		return err
	}
	ri.header = h

	payloadLen := int(h.LengthWords)*4 - header.ByteLength
	start := offset + header.ByteLength
	if len(buf) < start+payloadLen {
		return fmt.Errorf("%w: record payload needs %d bytes at offset %d, have %d", errs.Io, payloadLen, start, len(buf)-start)
	}

	return ri.decode(buf[start : start+payloadLen])
}

// decode decompresses payload (the record's bytes past its header) into the
// uncompressed buffer, reconstructing the index if the wire omitted it, then
// performs the index-to-offsets transform.
func (ri *RecordInput) decode(payload []byte) error {
	h := ri.header

	reservedIndexBytes := int(4 * h.EventCount)
	wireDataLen := int(h.IndexLength + header.PaddedLen(h.UserHeaderLength) + header.PaddedLen(h.DataLength))

	targetOffset := 0
	needed := wireDataLen
	if h.IndexLength == 0 {
		targetOffset = reservedIndexBytes
		needed += reservedIndexBytes
	}

	ri.uncompressedBuf.Reset()
	ri.uncompressedBuf.ExtendOrGrow(needed)

	if h.CompressionType.IsCompressed() {
		if int(h.CompressedLength) > len(payload) {
			return fmt.Errorf("%w: compressed length %d exceeds record payload of %d bytes", errs.BadHeader, h.CompressedLength, len(payload))
		}
		payload = payload[:h.CompressedLength]

		codec, err := compress.New(h.CompressionType)
		if err != nil {
			return err
		}

		if len(payload) == 0 {
			// Nothing to decompress; leave the target region zeroed.
		} else if bc, ok := codec.(compress.BufferCodec); ok {
			ri.uncompressedBuf.SetLength(targetOffset)
			if _, err := bc.DecompressInto(payload, ri.uncompressedBuf); err != nil {
				return err
			}
			ri.uncompressedBuf.ExtendOrGrow(needed - ri.uncompressedBuf.Len())
		} else {
			out, err := codec.Decompress(payload)
			if err != nil {
				return err
			}
			copy(ri.uncompressedBuf.Slice(targetOffset, targetOffset+len(out)), out)
		}
	} else {
		copy(ri.uncompressedBuf.Slice(targetOffset, targetOffset+wireDataLen), payload[:wireDataLen])
	}

	if h.IndexLength == 0 {
		if err := ri.reconstructIndex(); err != nil {
			return err
		}
	}

	ri.transformIndexToOffsets()

	return nil
}

// reconstructIndex fills the reserved index prefix by walking the event
// payload with the configured EventFramer, for records written with no
// on-wire index.
func (ri *RecordInput) reconstructIndex() error {
	h := ri.header
	eventsStart := int(4*h.EventCount) + int(header.PaddedLen(h.UserHeaderLength))
	pos := eventsStart

	buf := ri.uncompressedBuf.Bytes()
	for i := 0; i < int(h.EventCount); i++ {
		length, err := ri.framer.EventLength(buf, pos, h.Endian)
		if err != nil {
			return err
		}

		h.Endian.PutUint32(buf[i*4:], uint32(length))
		pos += length
	}

	return nil
}

// transformIndexToOffsets replaces each per-event length in the index with
// its cumulative end-offset: after this, index[i] is the byte offset, within
// the event payload, just past event i.
func (ri *RecordInput) transformIndexToOffsets() {
	h := ri.header
	buf := ri.uncompressedBuf.Bytes()

	var cum uint32
	for i := 0; i < int(h.EventCount); i++ {
		length := h.Endian.Uint32(buf[i*4:])
		cum += length
		h.Endian.PutUint32(buf[i*4:], cum)
	}
}

func (ri *RecordInput) eventsStart() int {
	return int(4*ri.header.EventCount) + int(header.PaddedLen(ri.header.UserHeaderLength))
}

func (ri *RecordInput) eventOffsets(i int) (start, end int) {
	buf := ri.uncompressedBuf.Bytes()
	if i == 0 {
		start = 0
	} else {
		start = int(ri.header.Endian.Uint32(buf[(i-1)*4:]))
	}
	end = int(ri.header.Endian.Uint32(buf[i*4:]))

	return start, end
}

// GetEvent returns event i's bytes, sliced from the internal uncompressed
// buffer (valid only until the next read). Out-of-range i is clamped to
// [0, count-1], matching historical caller expectations; a negative i
// clamps to 0.
func (ri *RecordInput) GetEvent(i int) []byte {
	count := int(ri.header.EventCount)
	if count == 0 {
		return nil
	}
	if i < 0 {
		i = 0
	}
	if i >= count {
		i = count - 1
	}

	start, end := ri.eventOffsets(i)
	base := ri.eventsStart()

	return ri.uncompressedBuf.Slice(base+start, base+end)
}

// GetEventInto copies event i's bytes into dst at off, returning the number
// of bytes written. Unlike GetEvent, an out-of-range i fails with
// errs.IndexOutOfRange rather than clamping.
func (ri *RecordInput) GetEventInto(dst []byte, off int, i int) (int, error) {
	count := int(ri.header.EventCount)
	if i < 0 || i >= count {
		return 0, fmt.Errorf("%w: event %d, have %d", errs.IndexOutOfRange, i, count)
	}

	start, end := ri.eventOffsets(i)
	base := ri.eventsStart()
	n := end - start

	if len(dst) < off+n {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, have %d", errs.BufferTooSmall, n, off, len(dst)-off)
	}

	copy(dst[off:off+n], ri.uncompressedBuf.Slice(base+start, base+end))

	return n, nil
}

// GetUserHeader returns the record's user header bytes, or nil if it has
// none.
func (ri *RecordInput) GetUserHeader() []byte {
	if ri.header.UserHeaderLength == 0 {
		return nil
	}

	base := int(4 * ri.header.EventCount)

	return ri.uncompressedBuf.Slice(base, base+int(ri.header.UserHeaderLength))
}

// GetUncompressedDataBuffer returns the full decoded buffer: the
// (possibly reconstructed) index, the padded user header, and the event
// payload, in that order.
func (ri *RecordInput) GetUncompressedDataBuffer() []byte {
	return ri.uncompressedBuf.Bytes()
}
