// Package compress implements the four record payload codecs defined by the
// HIPO/EVIO v6 wire format: None, LZ4-fast, LZ4-best, and Gzip.
//
// # Overview
//
// A record's compression algorithm is a 4-bit code in header word 10. There
// are exactly four valid codes; compress.New maps a format.CompressionType to
// the Codec that implements it:
//
//	codec, err := compress.New(format.CompressionLZ4Fast)
//	compressed, err := codec.Compress(payload)
//	original, err := codec.Decompress(compressed)
//
// # Bounded paths
//
// The two LZ4 codecs additionally implement BoundedCodec and BufferCodec,
// letting RecordOutput compress straight into the target record buffer and
// RecordInput decompress straight into its reused uncompressed buffer, with
// no throwaway allocation per record:
//
//	if bc, ok := codec.(compress.BoundedCodec); ok {
//	    n, err := bc.CompressInto(payload, dst[headerSize:])
//	}
//
// Gzip has no such bounded form — klauspost/compress/gzip is a streaming
// writer, not a block codec with a worst-case size bound — so it only
// implements Codec; callers fall back to the Compress/Decompress allocation
// path for it.
//
// # Choosing an algorithm
//
//   - None: the default. For payloads that are already compressed, or when
//     CPU matters more than on-disk size.
//   - LZ4-fast: fast in both directions, moderate ratio.
//   - LZ4-best: same decompressor as LZ4-fast, a slower level-9 compressor
//     for a smaller record. Good for write-once, read-many files.
//   - Gzip: best ratio of the four, substantially slower than either LZ4
//     variant in both directions.
package compress
