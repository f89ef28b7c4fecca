package record

import (
	"fmt"

	"github.com/JeffersonLab/go-hipo/compress"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/header"
)

// UncompressRecord copies the record at src[srcOffset:], described by h,
// into dst with its payload decompressed: the header is copied verbatim
// except the compression word (type and compressed length) is cleared and
// the record-length word is rewritten to match the now-uncompressed size. It returns the number of
// bytes written to dst.
//
// This is the helper Reader.ScanBuffer uses to materialize a compressed
// buffer's records into one contiguous uncompressed staging buffer before
// extracting event positions; it has no use for RecordInput's own read path,
// which decompresses each record independently.
func UncompressRecord(src []byte, srcOffset int, dst []byte, h *header.RecordHeader) (int, error) {
	if len(src) < srcOffset+header.ByteLength {
		return 0, fmt.Errorf("%w: record header needs %d bytes at offset %d, have %d", errs.Io, header.ByteLength, srcOffset, len(src)-srcOffset)
	}

	uncompressedLen := int(h.UncompressedRecordLength()) - header.ByteLength
	needed := header.ByteLength + uncompressedLen
	if len(dst) < needed {
		return 0, fmt.Errorf("%w: uncompressed record needs %d bytes, dst has %d", errs.BufferTooSmall, needed, len(dst))
	}

	copy(dst[:header.ByteLength], src[srcOffset:srcOffset+header.ByteLength])

	payloadStart := srcOffset + header.ByteLength
	payloadLen := int(h.LengthWords)*4 - header.ByteLength
	if len(src) < payloadStart+payloadLen {
		return 0, fmt.Errorf("%w: record payload needs %d bytes at offset %d, have %d", errs.Io, payloadLen, payloadStart, len(src)-payloadStart)
	}

	if h.CompressionType.IsCompressed() {
		codec, err := compress.New(h.CompressionType)
		if err != nil {
			return 0, err
		}

		if int(h.CompressedLength) > payloadLen {
			return 0, fmt.Errorf("%w: compressed length %d exceeds record payload of %d bytes", errs.BadHeader, h.CompressedLength, payloadLen)
		}

		out, err := codec.Decompress(src[payloadStart : payloadStart+int(h.CompressedLength)])
		if err != nil {
			return 0, err
		}
		copy(dst[header.ByteLength:header.ByteLength+len(out)], out)
	} else {
		copy(dst[header.ByteLength:header.ByteLength+uncompressedLen], src[payloadStart:payloadStart+uncompressedLen])
	}

	outHeader := *h
	outHeader.CompressionType = 0
	outHeader.CompressedLength = 0
	outHeader.LengthWords = header.Words(uint32(needed))

	if err := header.WriteRecordHeader(dst, 0, &outHeader); err != nil {
		return 0, err
	}

	return needed, nil
}
