package main

import (
	"encoding/binary"

	"github.com/ls4154/memtable/skiplist"
	"github.com/ls4154/memtable/util"
)

// Keys carry their own integrity check so a reader can validate anything it
// observes without coordinating with the writer:
//
//	bits 40..63  slot
//	bits  8..39  generation
//	bits  0..7   hash(slot, generation)
//
// The writer only ever appends a fresh generation per slot, so a reader that
// snapshots the per-slot generations before scanning knows exactly which
// keys must be present.

func packKey(slot, gen uint64) uint64 {
	return (slot << 40) | (gen << 8) | uint64(checkHash(slot, gen)&0xff)
}

func keySlot(key uint64) uint64 {
	return key >> 40
}

func keyGen(key uint64) uint64 {
	return (key >> 8) & 0xffffffff
}

func checkHash(slot, gen uint64) uint32 {
	var buf [16]byte
	util.EncodeFixed64(buf[:], slot)
	util.EncodeFixed64(buf[8:], gen)
	return util.Hash(buf[:], 0)
}

func keyIsValid(key uint64) bool {
	return uint64(checkHash(keySlot(key), keyGen(key))&0xff) == key&0xff
}

func uint64Key(arena *skiplist.Arena, v uint64) []byte {
	var b []byte
	if arena != nil {
		b = arena.Allocate(8)
	} else {
		b = make([]byte, 8)
	}
	binary.NativeEndian.PutUint64(b, v)
	return b
}

func keyFromBytes(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b)
}
