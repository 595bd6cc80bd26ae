package memtable

import (
	"encoding/binary"

	"github.com/ls4154/memtable/skiplist"
	"github.com/ls4154/memtable/util"
)

// MemTable is the in-memory write buffer of an LSM engine: an ordered map
// from internal keys (user key + sequence number + value type) to values,
// backed by a skip list over arena memory.
//
// Concurrency follows the skip list: any number of readers may run
// concurrently with a single writer, and the caller must serialize writes.
type MemTable struct {
	arena *skiplist.Arena
	list  *skiplist.SkipList
	icmp  *InternalKeyComparator
}

func New(opt *Options) (*MemTable, error) {
	opt, err := validateOptions(opt)
	if err != nil {
		return nil, err
	}

	icmp := NewInternalKeyComparator(opt.Comparator)
	arena := skiplist.NewArena(opt.ArenaBlockSize)
	list := skiplist.NewSkipList(entryComparator{icmp}, arena)
	return &MemTable{
		arena: arena,
		list:  list,
		icmp:  icmp,
	}, nil
}

// Entries are stored in a single arena allocation:
//
//	klen   varint
//	ikey   user key + 8 byte tag, klen bytes total
//	vlen   varint
//	value  vlen bytes
//
// The whole entry is the skip list key; entryComparator orders entries by
// their embedded internal key.
type entryComparator struct {
	icmp *InternalKeyComparator
}

func (c entryComparator) Compare(a, b []byte) int {
	akey, _ := util.GetLengthPrefixedBytes(a)
	bkey, _ := util.GetLengthPrefixedBytes(b)
	return c.icmp.Compare(akey, bkey)
}

func (mt *MemTable) Put(seq uint64, key, value []byte) {
	mt.Add(seq, TypeValue, key, value)
}

func (mt *MemTable) Delete(seq uint64, key []byte) {
	mt.Add(seq, TypeDeletion, key, nil)
}

// Add appends an entry. Entries are never overwritten; a newer entry for the
// same user key shadows older ones by sorting first. (seq, key) pairs must
// not repeat with the same value type.
func (mt *MemTable) Add(seq uint64, valueType ValueType, key, value []byte) {
	// tag: (seq << 8) | type
	ikeyLen := len(key) + 8
	encodedLen := util.VarintLength(uint64(ikeyLen)) + ikeyLen +
		util.VarintLength(uint64(len(value))) + len(value)

	buf := mt.arena.Allocate(encodedLen)
	n := binary.PutUvarint(buf, uint64(ikeyLen))
	n += copy(buf[n:], key)
	binary.LittleEndian.PutUint64(buf[n:], PackSequenceAndType(seq, valueType))
	n += 8
	n += binary.PutUvarint(buf[n:], uint64(len(value)))
	n += copy(buf[n:], value)
	util.Assert(n == encodedLen)

	mt.list.Insert(buf)
}

// Get looks up key as of sequence number seq. It reports the value if the
// freshest visible entry is a put, deleted=true if it is a deletion, and
// exist=false if the memtable holds nothing visible for the key.
func (mt *MemTable) Get(seq uint64, key []byte) (value []byte, deleted, exist bool) {
	var lkey LookupKey
	lkey.Set(key, seq)

	iter := mt.list.Iterator()
	iter.Seek(lkey.MemtableKey())
	if iter.Valid() {
		entry := iter.Key()
		ikey, n := util.GetLengthPrefixedBytes(entry)
		util.Assert(len(ikey) >= 8)
		userKey := ikey[:len(ikey)-8]
		if mt.icmp.userCmp.Compare(userKey, key) == 0 {
			tag := binary.LittleEndian.Uint64(ikey[len(ikey)-8:])
			switch ValueType(tag & 0xff) {
			case TypeDeletion:
				return nil, true, true
			case TypeValue:
				v, _ := util.GetLengthPrefixedBytes(entry[n:])
				return v, false, true
			}
		}
	}
	return nil, false, false
}

func (mt *MemTable) Iterator() *MemTableIterator {
	return &MemTableIterator{
		listIter: mt.list.Iterator(),
	}
}

// ApproximateMemoryUsage returns the bytes held by the backing arena.
func (mt *MemTable) ApproximateMemoryUsage() int {
	return mt.arena.MemoryUsage()
}

// MemTableIterator walks entries in internal key order: ascending user key,
// newest entry first within a user key.
type MemTableIterator struct {
	listIter *skiplist.Iterator
}

func (it *MemTableIterator) Valid() bool {
	return it.listIter.Valid()
}

func (it *MemTableIterator) Next() {
	it.listIter.Next()
}

func (it *MemTableIterator) Prev() {
	it.listIter.Prev()
}

func (it *MemTableIterator) SeekToFirst() {
	it.listIter.SeekToFirst()
}

func (it *MemTableIterator) SeekToLast() {
	it.listIter.SeekToLast()
}

// Seek positions at the first entry visible at seq with user key >= key.
func (it *MemTableIterator) Seek(seq uint64, key []byte) {
	var lkey LookupKey
	lkey.Set(key, seq)
	it.listIter.Seek(lkey.MemtableKey())
}

// Key returns the internal key of the current entry.
func (it *MemTableIterator) Key() []byte {
	ikey, _ := util.GetLengthPrefixedBytes(it.listIter.Key())
	return ikey
}

func (it *MemTableIterator) Value() []byte {
	entry := it.listIter.Key()
	_, n := util.GetLengthPrefixedBytes(entry)
	v, _ := util.GetLengthPrefixedBytes(entry[n:])
	return v
}
