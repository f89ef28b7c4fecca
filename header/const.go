// Package header implements the codec for the 56-byte general header shared
// by HIPO/EVIO v6 records, files, and trailers: parsing, serialization,
// bit-info packing, and the padding arithmetic every higher package in this
// module builds on.
package header

// Magic is the wire value that identifies a HIPO/EVIO v6 header. It sits at
// word 8 (byte offset 28) of every record, file, and trailer header, written
// in the header's own byte order; a reader with no prior knowledge of that
// order reads this word under its default engine and flips if the bytes only
// match once reversed (see endian.DetectMagic).
const Magic uint32 = 0xC0DA0100

// LengthWords is the fixed word count of a general header. Every header this
// package reads or writes is exactly this many words (56 bytes);
// ReadRecordHeader and ReadFileHeader both reject headers whose own
// header-length field disagrees.
const LengthWords = 14

// ByteLength is LengthWords expressed in bytes.
const ByteLength = LengthWords * 4

// Version is the only header version this codec understands.
const Version uint8 = 6

// PaddedLen rounds x up to the next multiple of 4.
func PaddedLen(x uint32) uint32 {
	return (x + 3) &^ 3
}

// Words returns the number of 4-byte words needed to hold x bytes once
// padded to a 4-byte boundary.
func Words(x uint32) uint32 {
	return PaddedLen(x) / 4
}
