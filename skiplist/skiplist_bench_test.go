package skiplist

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"testing"
)

func benchmarkKeys(n int) []uint64 {
	rnd := rand.New(rand.NewSource(42))
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(rnd.Int63())
	}
	return keys
}

func BenchmarkSkipListInsert(b *testing.B) {
	for _, n := range []int{1000, 100000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			keys := benchmarkKeys(n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				arena := NewArena(4096)
				list := NewSkipList(Uint64Comparator, arena)
				for _, k := range keys {
					list.Insert(uint64ToBytes(arena, k))
				}
			}
		})
	}
}

func BenchmarkSkipListContains(b *testing.B) {
	const n = 100000
	keys := benchmarkKeys(n)
	arena := NewArena(4096)
	list := NewSkipList(Uint64Comparator, arena)
	for _, k := range keys {
		list.Insert(uint64ToBytes(arena, k))
	}

	buf := make([]byte, 8)

	b.Run("hit", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			binary.NativeEndian.PutUint64(buf, keys[i%n])
			list.Contains(buf)
		}
	})

	b.Run("miss", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			binary.NativeEndian.PutUint64(buf, keys[i%n]|1<<63)
			list.Contains(buf)
		}
	})
}
