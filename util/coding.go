package util

import (
	"encoding/binary"
)

func EncodeFixed32(dst []byte, value uint32) {
	binary.LittleEndian.PutUint32(dst, value)
}

func DecodeFixed32(input []byte) uint32 {
	return binary.LittleEndian.Uint32(input)
}

func EncodeFixed64(dst []byte, value uint64) {
	binary.LittleEndian.PutUint64(dst, value)
}

func DecodeFixed64(input []byte) uint64 {
	return binary.LittleEndian.Uint64(input)
}

func VarintLength(x uint64) int {
	l := 1
	for x >= 0x80 {
		x >>= 7
		l++
	}
	return l
}

func AppendLengthPrefixedBytes(dest, value []byte) []byte {
	dest = binary.AppendUvarint(dest, uint64(len(value)))
	dest = append(dest, value...)
	return dest
}

// GetLengthPrefixedBytes returns the prefixed value and the total number of
// bytes consumed, or (nil, 0) if the input is malformed.
func GetLengthPrefixedBytes(input []byte) ([]byte, int) {
	length, n := binary.Uvarint(input)
	if n <= 0 {
		return nil, 0
	}
	if len(input)-n < int(length) {
		return nil, 0
	}
	return input[n : n+int(length)], n + int(length)
}
