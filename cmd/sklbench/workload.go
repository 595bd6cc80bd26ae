package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ls4154/memtable/skiplist"
	"github.com/ls4154/memtable/util"
)

const snappyInputSize = 4096

func runBenchmark(cfg config, spec benchSpec) (runResult, error) {
	var list *skiplist.SkipList
	if spec.prefill {
		list = buildList(cfg)
	}

	switch spec.name {
	case "fillseq":
		return runFillSeq(cfg), nil
	case "fillrandom":
		return runFillRandom(cfg), nil
	case "readseq":
		return runReadSeq(list, cfg), nil
	case "readreverse":
		return runReadReverse(list, cfg), nil
	case "readrandom":
		return runReadRandom(list, cfg), nil
	case "contains":
		return runContains(list, cfg), nil
	case "snappycomp":
		return runSnappyCompress(cfg), nil
	case "snappyuncomp":
		return runSnappyUncompress(cfg), nil
	default:
		return runResult{}, fmt.Errorf("unknown benchmark %q", spec.name)
	}
}

type workerResult struct {
	ops     int64
	misses  int64
	bytes   int64
	hist    latencyHistogram
	elapsed time.Duration
	scratch []byte
}

// buildList fills a fresh list with num keys outside the timed region.
func buildList(cfg config) *skiplist.SkipList {
	arena := skiplist.NewArena(cfg.arenaBlockSize)
	list := skiplist.NewSkipList(skiplist.ByteComparator, arena)
	for i := 0; i < cfg.num; i++ {
		list.Insert(arenaKey(arena, i))
	}
	return list
}

func runFillSeq(cfg config) runResult {
	start := time.Now()
	arena := skiplist.NewArena(cfg.arenaBlockSize)
	list := skiplist.NewSkipList(skiplist.ByteComparator, arena)

	// Inserts must stay on a single goroutine.
	merged := runWorkers(cfg.num, 1, cfg.seed,
		func(_ int, i int, wr *workerResult, _ *rand.Rand) bool {
			key := arenaKey(arena, i)

			t0 := time.Now()
			list.Insert(key)
			wr.hist.Observe(time.Since(t0))
			wr.bytes += int64(len(key))
			return true
		})

	return finalizeResult(int64(cfg.num), merged.ops, 0, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
}

func runFillRandom(cfg config) runResult {
	// A permutation rather than random draws: the list rejects duplicates.
	perm := rand.New(rand.NewSource(cfg.seed)).Perm(cfg.num)

	start := time.Now()
	arena := skiplist.NewArena(cfg.arenaBlockSize)
	list := skiplist.NewSkipList(skiplist.ByteComparator, arena)

	merged := runWorkers(cfg.num, 1, cfg.seed,
		func(_ int, i int, wr *workerResult, _ *rand.Rand) bool {
			key := arenaKey(arena, perm[i])

			t0 := time.Now()
			list.Insert(key)
			wr.hist.Observe(time.Since(t0))
			wr.bytes += int64(len(key))
			return true
		})

	return finalizeResult(int64(cfg.num), merged.ops, 0, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
}

func runReadSeq(list *skiplist.SkipList, cfg config) runResult {
	readsPerThread := readsPerThread(cfg)
	start := time.Now()
	iters := make([]*skiplist.Iterator, cfg.threads)

	merged := runWorkers(readsPerThread, cfg.threads, cfg.seed,
		func(workerID int, _ int, wr *workerResult, _ *rand.Rand) bool {
			iter := iters[workerID]
			if iter == nil {
				iter = list.Iterator()
				iter.SeekToFirst()
				iters[workerID] = iter
			}

			if !iter.Valid() {
				return false
			}

			t0 := time.Now()
			wr.bytes += int64(len(iter.Key()))
			iter.Next()
			wr.hist.Observe(time.Since(t0))
			return true
		})

	requested := int64(readsPerThread) * int64(cfg.threads)
	misses := max64(requested-merged.ops, 0)
	return finalizeResult(requested, merged.ops, misses, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
}

func runReadReverse(list *skiplist.SkipList, cfg config) runResult {
	readsPerThread := readsPerThread(cfg)
	start := time.Now()
	iters := make([]*skiplist.Iterator, cfg.threads)

	merged := runWorkers(readsPerThread, cfg.threads, cfg.seed,
		func(workerID int, _ int, wr *workerResult, _ *rand.Rand) bool {
			iter := iters[workerID]
			if iter == nil {
				iter = list.Iterator()
				iter.SeekToLast()
				iters[workerID] = iter
			}

			if !iter.Valid() {
				return false
			}

			t0 := time.Now()
			wr.bytes += int64(len(iter.Key()))
			iter.Prev()
			wr.hist.Observe(time.Since(t0))
			return true
		})

	requested := int64(readsPerThread) * int64(cfg.threads)
	misses := max64(requested-merged.ops, 0)
	return finalizeResult(requested, merged.ops, misses, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
}

func runReadRandom(list *skiplist.SkipList, cfg config) runResult {
	readsPerThread := readsPerThread(cfg)
	start := time.Now()
	iters := make([]*skiplist.Iterator, cfg.threads)

	merged := runWorkers(readsPerThread, cfg.threads, cfg.seed,
		func(workerID int, _ int, wr *workerResult, rng *rand.Rand) bool {
			iter := iters[workerID]
			if iter == nil {
				iter = list.Iterator()
				iters[workerID] = iter
			}

			key := heapKey(rng.Intn(cfg.num))

			t0 := time.Now()
			iter.Seek(key)
			wr.hist.Observe(time.Since(t0))
			if iter.Valid() && bytes.Equal(iter.Key(), key) {
				wr.bytes += int64(len(key))
			} else {
				wr.misses++
			}
			return true
		})

	requested := int64(readsPerThread) * int64(cfg.threads)
	r := finalizeResult(requested, merged.ops, merged.misses, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
	r.message = fmt.Sprintf("(%d of %d found)", r.ops-r.misses, r.ops)
	return r
}

func runContains(list *skiplist.SkipList, cfg config) runResult {
	readsPerThread := readsPerThread(cfg)
	start := time.Now()

	// Probe twice the key space so roughly half the lookups miss.
	merged := runWorkers(readsPerThread, cfg.threads, cfg.seed,
		func(_ int, _ int, wr *workerResult, rng *rand.Rand) bool {
			key := heapKey(rng.Intn(cfg.num * 2))

			t0 := time.Now()
			found := list.Contains(key)
			wr.hist.Observe(time.Since(t0))
			if found {
				wr.bytes += int64(len(key))
			} else {
				wr.misses++
			}
			return true
		})

	requested := int64(readsPerThread) * int64(cfg.threads)
	r := finalizeResult(requested, merged.ops, merged.misses, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
	r.message = fmt.Sprintf("(%d of %d found)", r.ops-r.misses, r.ops)
	return r
}

func runSnappyCompress(cfg config) runResult {
	rng := rand.New(rand.NewSource(cfg.seed))
	input := makeCompressibleBytes(rng, cfg.compressionRatio, snappyInputSize)
	n := readsPerThread(cfg)
	start := time.Now()

	merged := runWorkers(n, cfg.threads, cfg.seed,
		func(_ int, _ int, wr *workerResult, _ *rand.Rand) bool {
			t0 := time.Now()
			out := util.SnappyCompress(wr.scratch, input)
			wr.hist.Observe(time.Since(t0))
			wr.scratch = out[:cap(out)]
			if len(out) == 0 {
				return false
			}
			wr.bytes += int64(len(input))
			return true
		})

	requested := int64(n) * int64(cfg.threads)
	r := finalizeResult(requested, merged.ops, 0, merged.bytes, time.Since(start), merged.elapsed, merged.hist)
	ratio := float64(len(util.SnappyCompress(nil, input))) * 100.0 / float64(len(input))
	r.message = fmt.Sprintf("(output: %.1f%%)", ratio)
	return r
}

func runSnappyUncompress(cfg config) runResult {
	rng := rand.New(rand.NewSource(cfg.seed))
	input := makeCompressibleBytes(rng, cfg.compressionRatio, snappyInputSize)
	compressed := util.SnappyCompress(nil, input)
	n := readsPerThread(cfg)
	start := time.Now()

	merged := runWorkers(n, cfg.threads, cfg.seed,
		func(_ int, _ int, wr *workerResult, _ *rand.Rand) bool {
			t0 := time.Now()
			out, err := util.SnappyUncompress(wr.scratch, compressed)
			wr.hist.Observe(time.Since(t0))
			if err != nil {
				return false
			}
			wr.scratch = out
			wr.bytes += int64(len(out))
			return true
		})

	requested := int64(n) * int64(cfg.threads)
	return finalizeResult(requested, merged.ops, max64(requested-merged.ops, 0), merged.bytes, time.Since(start), merged.elapsed, merged.hist)
}

func readsPerThread(cfg config) int {
	if cfg.reads >= 0 {
		return cfg.reads
	}
	return cfg.num
}

func runWorkers(
	opsPerThread int,
	threads int,
	seed int64,
	fn func(workerID int, i int, wr *workerResult, rng *rand.Rand) bool,
) workerResult {
	var wg sync.WaitGroup
	out := make(chan workerResult, threads)

	for wid := 0; wid < threads; wid++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			wr := workerResult{hist: newLatencyHistogram()}
			rng := rand.New(rand.NewSource(seed + int64(workerID)))
			begin := time.Now()

			for i := 0; i < opsPerThread; i++ {
				if !fn(workerID, i, &wr, rng) {
					break
				}
				wr.ops++
			}

			wr.elapsed = time.Since(begin)
			out <- wr
		}(wid)
	}

	wg.Wait()
	close(out)

	merged := workerResult{hist: newLatencyHistogram()}
	for wr := range out {
		merged.ops += wr.ops
		merged.misses += wr.misses
		merged.bytes += wr.bytes
		merged.elapsed += wr.elapsed
		merged.hist.Merge(wr.hist)
	}
	return merged
}
