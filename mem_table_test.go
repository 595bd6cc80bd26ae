package memtable

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMemTable(t *testing.T) *MemTable {
	mt, err := New(DefaultOptions())
	require.NoError(t, err)
	return mt
}

func TestMemTableAddGet(t *testing.T) {
	mt := newTestMemTable(t)

	mt.Put(5, []byte("key"), []byte("v1"))
	mt.Put(10, []byte("key"), []byte("v2"))
	mt.Put(7, []byte("other"), nil)

	// Nothing visible before the first write.
	_, _, exist := mt.Get(4, []byte("key"))
	require.False(t, exist)

	value, deleted, exist := mt.Get(5, []byte("key"))
	require.True(t, exist)
	require.False(t, deleted)
	require.Equal(t, []byte("v1"), value)

	// A snapshot between the two writes still sees the old value.
	value, _, exist = mt.Get(9, []byte("key"))
	require.True(t, exist)
	require.Equal(t, []byte("v1"), value)

	value, _, exist = mt.Get(10, []byte("key"))
	require.True(t, exist)
	require.Equal(t, []byte("v2"), value)

	value, _, exist = mt.Get(MaxSequenceNumber, []byte("key"))
	require.True(t, exist)
	require.Equal(t, []byte("v2"), value)

	// Empty values are fine.
	value, deleted, exist = mt.Get(7, []byte("other"))
	require.True(t, exist)
	require.False(t, deleted)
	require.Empty(t, value)

	_, _, exist = mt.Get(MaxSequenceNumber, []byte("missing"))
	require.False(t, exist)
}

func TestMemTableDelete(t *testing.T) {
	mt := newTestMemTable(t)

	mt.Put(5, []byte("key"), []byte("value"))
	mt.Delete(10, []byte("key"))

	value, deleted, exist := mt.Get(7, []byte("key"))
	require.True(t, exist)
	require.False(t, deleted)
	require.Equal(t, []byte("value"), value)

	_, deleted, exist = mt.Get(10, []byte("key"))
	require.True(t, exist)
	require.True(t, deleted)

	_, deleted, exist = mt.Get(MaxSequenceNumber, []byte("key"))
	require.True(t, exist)
	require.True(t, deleted)
}

func TestMemTableIterator(t *testing.T) {
	mt := newTestMemTable(t)

	mt.Put(1, []byte("banana"), []byte("b1"))
	mt.Put(2, []byte("apple"), []byte("a1"))
	mt.Put(3, []byte("cherry"), []byte("c1"))
	mt.Put(4, []byte("apple"), []byte("a2"))

	// Ascending user key, newest entry first within a user key.
	wantKeys := []string{"apple", "apple", "banana", "cherry"}
	wantSeqs := []uint64{4, 2, 1, 3}
	wantValues := []string{"a2", "a1", "b1", "c1"}

	it := mt.Iterator()
	it.SeekToFirst()
	for i := range wantKeys {
		require.True(t, it.Valid())
		parsed, err := ParseInternalKey(it.Key())
		require.NoError(t, err)
		require.Equal(t, []byte(wantKeys[i]), parsed.UserKey)
		require.Equal(t, wantSeqs[i], parsed.Sequence)
		require.Equal(t, TypeValue, parsed.Type)
		require.Equal(t, []byte(wantValues[i]), it.Value())
		it.Next()
	}
	require.False(t, it.Valid())

	it.SeekToLast()
	for i := len(wantKeys) - 1; i >= 0; i-- {
		require.True(t, it.Valid())
		parsed, err := ParseInternalKey(it.Key())
		require.NoError(t, err)
		require.Equal(t, []byte(wantKeys[i]), parsed.UserKey)
		require.Equal(t, wantSeqs[i], parsed.Sequence)
		it.Prev()
	}
	require.False(t, it.Valid())
}

func TestMemTableIteratorSeek(t *testing.T) {
	mt := newTestMemTable(t)

	mt.Put(1, []byte("apple"), []byte("a1"))
	mt.Put(5, []byte("apple"), []byte("a5"))
	mt.Put(3, []byte("banana"), []byte("b3"))

	it := mt.Iterator()

	// Seek at the latest sequence lands on the freshest apple entry.
	it.Seek(MaxSequenceNumber, []byte("apple"))
	require.True(t, it.Valid())
	parsed, err := ParseInternalKey(it.Key())
	require.NoError(t, err)
	require.Equal(t, []byte("apple"), parsed.UserKey)
	require.Equal(t, uint64(5), parsed.Sequence)

	// An older snapshot skips entries newer than it.
	it.Seek(2, []byte("apple"))
	require.True(t, it.Valid())
	parsed, err = ParseInternalKey(it.Key())
	require.NoError(t, err)
	require.Equal(t, []byte("apple"), parsed.UserKey)
	require.Equal(t, uint64(1), parsed.Sequence)

	// Seeking past a user key moves to the next one.
	it.Seek(MaxSequenceNumber, []byte("avocado"))
	require.True(t, it.Valid())
	parsed, err = ParseInternalKey(it.Key())
	require.NoError(t, err)
	require.Equal(t, []byte("banana"), parsed.UserKey)

	it.Seek(MaxSequenceNumber, []byte("zucchini"))
	require.False(t, it.Valid())
}

func TestMemTableMemoryUsage(t *testing.T) {
	mt := newTestMemTable(t)

	last := mt.ApproximateMemoryUsage()
	payload := 0
	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("key%06d", i))
		value := []byte(fmt.Sprintf("value%06d", i))
		mt.Put(uint64(i+1), key, value)
		payload += len(key) + len(value)

		usage := mt.ApproximateMemoryUsage()
		require.GreaterOrEqual(t, usage, last)
		last = usage
	}
	require.GreaterOrEqual(t, mt.ApproximateMemoryUsage(), payload)
}

func TestMemTableOptions(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	// Zero values fall back to defaults.
	mt, err := New(&Options{})
	require.NoError(t, err)
	mt.Put(1, []byte("a"), []byte("b"))
	value, _, exist := mt.Get(1, []byte("a"))
	require.True(t, exist)
	require.Equal(t, []byte("b"), value)

	// Out-of-range block sizes are clipped, not rejected.
	mt, err = New(&Options{ArenaBlockSize: 1})
	require.NoError(t, err)
	mt.Put(1, []byte("a"), []byte("b"))
	require.GreaterOrEqual(t, mt.ApproximateMemoryUsage(), 4<<10)
}

type reverseComparator struct{}

func (reverseComparator) Compare(a, b []byte) int {
	return BytewiseComparator.Compare(b, a)
}

func (reverseComparator) Name() string {
	return "test.ReverseComparator"
}

func TestMemTableCustomComparator(t *testing.T) {
	mt, err := New(&Options{Comparator: reverseComparator{}})
	require.NoError(t, err)

	mt.Put(1, []byte("apple"), nil)
	mt.Put(2, []byte("banana"), nil)
	mt.Put(3, []byte("cherry"), nil)

	it := mt.Iterator()
	it.SeekToFirst()
	for _, want := range []string{"cherry", "banana", "apple"} {
		require.True(t, it.Valid())
		require.Equal(t, []byte(want), ExtractUserKey(it.Key()))
		it.Next()
	}
	require.False(t, it.Valid())
}

func TestMemTableConcurrentReaders(t *testing.T) {
	const (
		totalKeys     = 5000
		readerWorkers = 4
	)

	mt := newTestMemTable(t)

	var published int64 = -1
	done := make(chan struct{})
	errCh := make(chan error, readerWorkers)

	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for i := 0; i < totalKeys; i++ {
			key := []byte(fmt.Sprintf("key%06d", i))
			value := []byte(fmt.Sprintf("value%06d", i))
			mt.Put(uint64(i+1), key, value)
			atomic.StoreInt64(&published, int64(i))
		}
		close(done)
	}()

	var readerWG sync.WaitGroup
	for w := 0; w < readerWorkers; w++ {
		readerWG.Add(1)
		go func(worker int) {
			defer readerWG.Done()
			next := 0
			for {
				max := atomic.LoadInt64(&published)
				if int64(next) <= max {
					key := []byte(fmt.Sprintf("key%06d", next))
					value, deleted, exist := mt.Get(MaxSequenceNumber, key)
					if !exist || deleted {
						errCh <- fmt.Errorf("worker %d: published key missing: %s", worker, key)
						return
					}
					want := fmt.Sprintf("value%06d", next)
					if string(value) != want {
						errCh <- fmt.Errorf("worker %d: wrong value for %s: %q", worker, key, value)
						return
					}
					next = (next + 1) % totalKeys
				}

				select {
				case <-done:
					return
				default:
				}
			}
		}(w)
	}

	writerWG.Wait()
	readerWG.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
}
