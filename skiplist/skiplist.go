package skiplist

import (
	"sync/atomic"
	"unsafe"

	"github.com/ls4154/memtable/util"
)

// Concurrency: lock-free multi-reader + externally serialized single-writer.
// Readers can run concurrently with the writer and may miss in-flight inserts.
type SkipList struct {
	cmp   Comparator
	arena *Arena
	rnd   RandomSource
	head  *node

	// Height of the tallest node in the list. Written only by the writer;
	// readers may observe a stale (smaller) value, which is harmless because
	// every node is linked at all levels up to its own height.
	curMaxHeight int32
}

const (
	maxHeight = 12
	branching = 4

	maxNodeSize = int(unsafe.Sizeof(node{}))
	ptrSize     = int(unsafe.Sizeof((*node)(nil)))
)

// RandomSource supplies the height draws for new nodes. Only the writer
// draws from it, so implementations need not be goroutine safe.
type RandomSource interface {
	Uniform(n int) uint32
	OneIn(n int) bool
}

type node struct {
	keyPtr *byte
	keyLen uint32
	next   [maxHeight]*node
}

func NewSkipList(cmp Comparator, arena *Arena) *SkipList {
	return NewSkipListWithSource(cmp, arena, util.NewRandom(0xdeadbeef))
}

func NewSkipListWithSource(cmp Comparator, arena *Arena, rnd RandomSource) *SkipList {
	sl := &SkipList{
		cmp:          cmp,
		arena:        arena,
		rnd:          rnd,
		curMaxHeight: 1,
	}

	n := sl.newNode(nil, maxHeight)
	for i := int32(0); i < maxHeight; i++ {
		n.SetNext(i, nil)
	}
	sl.head = n

	return sl
}

// Insert key into the list.
// The key must be a memory allocated from Arena and must not compare equal
// to any key already in the list.
// Caller must serialize Insert calls (single writer).
func (s *SkipList) Insert(key []byte) {
	var prev [maxHeight]*node
	ge := s.findGreaterOrEqual(key, prev[:])

	util.AssertFunc(func() bool {
		return ge == nil || s.cmp.Compare(key, ge.Key()) != 0
	})

	height := s.randomHeight()
	curMaxHeight := s.getMaxHeight()
	if height > curMaxHeight {
		for i := curMaxHeight; i < height; i++ {
			prev[i] = s.head
		}
		// A concurrent reader seeing the old value will start its descent a
		// few levels low, which is still correct.
		s.setMaxHeight(height)
	}

	node := s.newNode(key, height)
	for i := int32(0); i < height; i++ {
		// The new node's own link must be set before the node is published
		// through prev at the same level.
		node.SetNext(i, prev[i].GetNext(i))
		prev[i].SetNext(i, node)
	}
}

// Contains reports whether a key comparing equal to key is in the list.
func (s *SkipList) Contains(key []byte) bool {
	node := s.findGreaterOrEqual(key, nil)
	return node != nil && s.cmp.Compare(key, node.Key()) == 0
}

func (s *SkipList) Iterator() *Iterator {
	return &Iterator{
		list: s,
	}
}

func (s *SkipList) getMaxHeight() int32 {
	return atomic.LoadInt32(&s.curMaxHeight)
}

func (s *SkipList) setMaxHeight(height int32) {
	atomic.StoreInt32(&s.curMaxHeight, height)
}

func (s *SkipList) newNode(key []byte, height int32) *node {
	// NOTE: Variable-size tail allocation is memory-efficient, but this []byte->*node
	// cast trips checkptr under -race ("converted pointer straddles multiple allocations").
	// Keep this for now; revisit node allocation layout to make race/checkptr-friendly.
	size := maxNodeSize - int(maxHeight-height)*ptrSize
	node := (*node)(bytesToPtr(s.arena.AllocateAligned(size)))

	if len(key) > 0 {
		node.keyPtr = &key[0]
		node.keyLen = uint32(len(key))
	}
	return node
}

func (s *SkipList) findGreaterOrEqual(key []byte, prev []*node) *node {
	cur := s.head
	lv := s.getMaxHeight() - 1
	for {
		next := cur.GetNext(lv)
		if s.keyIsAfterNode(key, next) {
			cur = next
		} else {
			if prev != nil {
				prev[lv] = cur
			}
			if lv == 0 {
				return next
			} else {
				lv--
			}
		}
	}
}

func (s *SkipList) findLessThan(key []byte) *node {
	cur := s.head
	lv := s.getMaxHeight() - 1
	for {
		next := cur.GetNext(lv)
		if s.keyIsAfterNode(key, next) {
			cur = next
		} else {
			if lv == 0 {
				return cur
			} else {
				lv--
			}
		}
	}
}

func (s *SkipList) findLast() *node {
	cur := s.head
	lv := s.getMaxHeight() - 1
	for {
		next := cur.GetNext(lv)
		if next == nil {
			if lv == 0 {
				return cur
			} else {
				lv--
			}
		} else {
			cur = next
		}
	}
}

func (s *SkipList) keyIsAfterNode(key []byte, node *node) bool {
	return node != nil && s.cmp.Compare(node.Key(), key) < 0
}

func (s *SkipList) randomHeight() int32 {
	height := int32(1)
	for height < maxHeight && s.rnd.OneIn(branching) {
		height++
	}
	return height
}

func (n *node) GetNext(height int32) *node {
	return (*node)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&n.next[height]))))
}

func (n *node) SetNext(height int32, node *node) {
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&n.next[height])), unsafe.Pointer(node))
}

func (n *node) Key() []byte {
	return unsafe.Slice(n.keyPtr, n.keyLen)
}

// Iterator is a cursor over the list. It is not goroutine safe itself, but
// can be used while a writer concurrently inserts.
type Iterator struct {
	list *SkipList
	node *node
}

func (it *Iterator) Valid() bool {
	return it.node != nil
}

func (it *Iterator) Next() {
	util.Assert(it.Valid())
	it.node = it.node.GetNext(0)
}

// Prev walks to the previous node by searching from the head. O(log n);
// nodes carry no backward links.
func (it *Iterator) Prev() {
	util.Assert(it.Valid())
	it.node = it.list.findLessThan(it.node.Key())
	if it.node == it.list.head {
		it.node = nil
	}
}

func (it *Iterator) SeekToFirst() {
	it.node = it.list.head.GetNext(0)
}

func (it *Iterator) SeekToLast() {
	it.node = it.list.findLast()
	if it.node == it.list.head {
		it.node = nil
	}
}

// Seek positions at the first node with key >= target.
func (it *Iterator) Seek(target []byte) {
	it.node = it.list.findGreaterOrEqual(target, nil)
}

func (it *Iterator) Key() []byte {
	util.Assert(it.Valid())
	return it.node.Key()
}
