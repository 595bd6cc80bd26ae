package main

import "github.com/ls4154/memtable/skiplist"

const keySize = 16

// makeKey writes i into dst as zero-padded decimal, so byte order matches
// numeric order. dst must be keySize bytes long.
func makeKey(dst []byte, i int) []byte {
	n := i
	for pos := keySize - 1; pos >= 0; pos-- {
		dst[pos] = byte('0' + n%10)
		n /= 10
	}
	return dst
}

func heapKey(i int) []byte {
	return makeKey(make([]byte, keySize), i)
}

// arenaKey builds a key inside the arena, as inserted keys must outlive the
// list.
func arenaKey(arena *skiplist.Arena, i int) []byte {
	return makeKey(arena.Allocate(keySize), i)
}
