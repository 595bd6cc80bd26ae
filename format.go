package memtable

import (
	"encoding/binary"

	"github.com/ls4154/memtable/util"
)

type ValueType byte

const (
	TypeDeletion ValueType = 0
	TypeValue    ValueType = 1

	// TypeForSeek is the tag type carried by lookup keys. Tags sort in
	// decreasing order, so this must be the highest-numbered type to cover
	// every entry at the same sequence number.
	TypeForSeek = TypeValue
)

const MaxSequenceNumber uint64 = (1 << 56) - 1

func PackSequenceAndType(seq uint64, t ValueType) uint64 {
	return (seq << 8) | uint64(t)
}

// InternalKeyComparator orders internal keys by ascending user key, then
// descending tag, so the freshest entry for a user key comes first.
type InternalKeyComparator struct {
	userCmp Comparator
}

func NewInternalKeyComparator(userCmp Comparator) *InternalKeyComparator {
	return &InternalKeyComparator{userCmp: userCmp}
}

func (ic *InternalKeyComparator) Compare(a []byte, b []byte) int {
	r := ic.userCmp.Compare(ExtractUserKey(a), ExtractUserKey(b))
	if r == 0 {
		aNum := binary.LittleEndian.Uint64(a[len(a)-8:])
		bNum := binary.LittleEndian.Uint64(b[len(b)-8:])
		if aNum > bNum {
			r = -1
		} else if aNum < bNum {
			r = 1
		}
	}
	return r
}

func (*InternalKeyComparator) Name() string {
	return "leveldb.InternalKeyComparator"
}

func ExtractUserKey(internalKey []byte) []byte {
	util.Assert(len(internalKey) >= 8)
	return internalKey[:len(internalKey)-8]
}

// LookupKey bundles the three key forms used when reading: the memtable key
// (length-prefixed internal key), the internal key, and the bare user key.
type LookupKey struct {
	buf    [200]byte // avoid allocation for short keys
	key    []byte
	kstart int
}

func (k *LookupKey) Set(userKey []byte, seq uint64) {
	needed := len(userKey) + 13 // conservative varint estimate
	var dst []byte
	if needed <= len(k.buf) {
		dst = k.buf[:0]
	} else {
		dst = make([]byte, 0, needed)
	}

	dst = binary.AppendUvarint(dst, uint64(len(userKey)+8))
	k.kstart = len(dst)
	dst = append(dst, userKey...)
	dst = binary.LittleEndian.AppendUint64(dst, PackSequenceAndType(seq, TypeForSeek))

	k.key = dst
}

func (k *LookupKey) MemtableKey() []byte {
	return k.key
}

func (k *LookupKey) InternalKey() []byte {
	return k.key[k.kstart:]
}

func (k *LookupKey) UserKey() []byte {
	return k.key[k.kstart : len(k.key)-8]
}

type ParsedInternalKey struct {
	UserKey  []byte
	Sequence uint64
	Type     ValueType
}

func ParseInternalKey(ikey []byte) (*ParsedInternalKey, error) {
	if len(ikey) < 8 {
		return nil, ErrCorruption
	}

	userKey := ExtractUserKey(ikey)
	seqType := binary.LittleEndian.Uint64(ikey[len(userKey):])
	seq := seqType >> 8
	t := ValueType(seqType & 0xff)

	return &ParsedInternalKey{
		UserKey:  userKey,
		Sequence: seq,
		Type:     t,
	}, nil
}
