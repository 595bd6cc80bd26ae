package skiplist

import (
	"bytes"
	"cmp"
	"encoding/binary"
)

type Comparator interface {
	Compare(a []byte, b []byte) int
}

var ByteComparator byteComparator

type byteComparator struct{}

func (byteComparator) Compare(a []byte, b []byte) int {
	return bytes.Compare(a, b)
}

// Uint64Comparator orders keys holding a single native-endian uint64.
var Uint64Comparator uint64Comparator

type uint64Comparator struct{}

func (uint64Comparator) Compare(a []byte, b []byte) int {
	return cmp.Compare(binary.NativeEndian.Uint64(a), binary.NativeEndian.Uint64(b))
}
