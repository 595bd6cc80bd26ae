package util

import (
	"github.com/golang/snappy"
)

// SnappyCompress encodes input in snappy block format. The encoding is
// written into dst when it is large enough, so hot paths can hand the
// previous output back in to avoid reallocating. dst may be nil.
func SnappyCompress(dst, input []byte) []byte {
	return snappy.Encode(dst, input)
}

// SnappyUncompress reverses SnappyCompress, reusing dst the same way.
// Input that is not a well-formed snappy block yields an error.
func SnappyUncompress(dst, input []byte) ([]byte, error) {
	return snappy.Decode(dst, input)
}
