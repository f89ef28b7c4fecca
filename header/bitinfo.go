package header

import "github.com/JeffersonLab/go-hipo/format"

// BitInfo is header word 6: version packed into the low byte, everything else
// packed into the high 24 bits. A single 32-bit value carries all of it so
// that reading and writing a header never has to touch more than one word
// for this information.
//
//	bits 0-7   version
//	bit  8     has dictionary
//	bit  9     is last record
//	bits 10-13 event type (record headers) / has-trailer-with-index at bit 10 (file headers)
//	bits 20-21 user-header pad count
//	bits 22-23 data pad count
//	bits 24-25 compressed-data pad count
//	bits 28-31 header kind
type BitInfo uint32

const (
	bitHasDictionary  = 8
	bitIsLastRecord   = 9
	eventTypeShift    = 10
	eventTypeMask     = 0xF
	userHeaderPadShift = 20
	dataPadShift       = 22
	compressedPadShift = 24
	padMask            = 0x3
	headerKindShift     = 28
	headerKindMask      = 0xF
)

// NewBitInfo packs version and kind into a BitInfo with every other field
// zeroed. Callers chain the With* methods to set the rest.
func NewBitInfo(version uint8, kind format.HeaderKind) BitInfo {
	return BitInfo(uint32(version) | uint32(kind)<<headerKindShift)
}

func (b BitInfo) bit(n uint) bool {
	return uint32(b)&(1<<n) != 0
}

func (b BitInfo) setBit(n uint, v bool) BitInfo {
	if v {
		return BitInfo(uint32(b) | (1 << n))
	}

	return BitInfo(uint32(b) &^ (1 << n))
}

// Version returns the header version packed in bits 0-7.
func (b BitInfo) Version() uint8 {
	return uint8(b)
}

// WithVersion returns b with its version field replaced.
func (b BitInfo) WithVersion(v uint8) BitInfo {
	return BitInfo(uint32(b)&^0xFF | uint32(v))
}

// HasDictionary reports bit 8.
func (b BitInfo) HasDictionary() bool { return b.bit(bitHasDictionary) }

// WithHasDictionary returns b with bit 8 set or cleared.
func (b BitInfo) WithHasDictionary(v bool) BitInfo { return b.setBit(bitHasDictionary, v) }

// IsLastRecord reports bit 9.
func (b BitInfo) IsLastRecord() bool { return b.bit(bitIsLastRecord) }

// WithIsLastRecord returns b with bit 9 set or cleared.
func (b BitInfo) WithIsLastRecord(v bool) BitInfo { return b.setBit(bitIsLastRecord, v) }

// EventType returns bits 10-13, the opaque per-event type tag a record
// header carries.
func (b BitInfo) EventType() format.EventType {
	return format.EventType(uint32(b)>>eventTypeShift) & eventTypeMask
}

// WithEventType returns b with bits 10-13 replaced.
func (b BitInfo) WithEventType(t format.EventType) BitInfo {
	cleared := uint32(b) &^ (eventTypeMask << eventTypeShift)

	return BitInfo(cleared | (uint32(t)&eventTypeMask)<<eventTypeShift)
}

// HasTrailerWithIndex reports bit 10. File headers repurpose the low bit of
// the event-type field (meaningless for a file header) to flag that the
// file's trailer record carries a record-lookup index.
func (b BitInfo) HasTrailerWithIndex() bool { return b.bit(eventTypeShift) }

// WithHasTrailerWithIndex returns b with bit 10 set or cleared.
func (b BitInfo) WithHasTrailerWithIndex(v bool) BitInfo { return b.setBit(eventTypeShift, v) }

// UserHeaderPad returns bits 20-21: the number of padding bytes appended
// after the user header to reach a 4-byte boundary.
func (b BitInfo) UserHeaderPad() uint8 {
	return uint8(uint32(b)>>userHeaderPadShift) & padMask
}

// WithUserHeaderPad returns b with bits 20-21 replaced.
func (b BitInfo) WithUserHeaderPad(pad uint8) BitInfo {
	cleared := uint32(b) &^ (padMask << userHeaderPadShift)

	return BitInfo(cleared | (uint32(pad)&padMask)<<userHeaderPadShift)
}

// DataPad returns bits 22-23: the padding applied after the event payload.
func (b BitInfo) DataPad() uint8 {
	return uint8(uint32(b)>>dataPadShift) & padMask
}

// WithDataPad returns b with bits 22-23 replaced.
func (b BitInfo) WithDataPad(pad uint8) BitInfo {
	cleared := uint32(b) &^ (padMask << dataPadShift)

	return BitInfo(cleared | (uint32(pad)&padMask)<<dataPadShift)
}

// CompressedPad returns bits 24-25: the padding applied after the
// compressed payload.
func (b BitInfo) CompressedPad() uint8 {
	return uint8(uint32(b)>>compressedPadShift) & padMask
}

// WithCompressedPad returns b with bits 24-25 replaced.
func (b BitInfo) WithCompressedPad(pad uint8) BitInfo {
	cleared := uint32(b) &^ (padMask << compressedPadShift)

	return BitInfo(cleared | (uint32(pad)&padMask)<<compressedPadShift)
}

// Kind returns bits 28-31, the header-kind tag distinguishing a plain
// record from a trailer or a file header.
func (b BitInfo) Kind() format.HeaderKind {
	return format.HeaderKind(uint32(b)>>headerKindShift) & headerKindMask
}

// WithKind returns b with bits 28-31 replaced.
func (b BitInfo) WithKind(k format.HeaderKind) BitInfo {
	cleared := uint32(b) &^ (headerKindMask << headerKindShift)

	return BitInfo(cleared | (uint32(k)&headerKindMask)<<headerKindShift)
}

// padFor returns (-x) mod 4, the number of padding bytes needed to round x
// up to a 4-byte boundary.
func padFor(x uint32) uint8 {
	return uint8((4 - x%4) % 4)
}
