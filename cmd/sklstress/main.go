package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ls4154/memtable"
	"github.com/ls4154/memtable/env"
	"github.com/ls4154/memtable/skiplist"
)

// sklstress drives one writer and many lock-free readers against a shared
// skip list and checks that no reader ever observes a half-published key.
// When the arena grows past the memory cap the list is dropped and a fresh
// epoch starts, the way an LSM engine rotates a full memtable.

type config struct {
	duration       time.Duration
	reportInterval time.Duration
	writerDelay    time.Duration

	readers      int
	slots        int
	scanSteps    int
	reverseSteps int

	arenaBlockSize int
	maxMemMB       int64
	seed           int64
	quiet          bool
}

type stats struct {
	writes     atomic.Uint64
	scans      atomic.Uint64
	scanSteps  atomic.Uint64
	seeks      atomic.Uint64
	reverses   atomic.Uint64
	violations atomic.Uint64
}

type totals struct {
	writes    uint64
	scans     uint64
	scanSteps uint64
	seeks     uint64
	reverses  uint64
}

func (t *totals) add(st *stats) {
	t.writes += st.writes.Load()
	t.scans += st.scans.Load()
	t.scanSteps += st.scanSteps.Load()
	t.seeks += st.seeks.Load()
	t.reverses += st.reverses.Load()
}

// stressState is the shared structure of one epoch. current[k] holds the
// latest generation committed for slot k; the writer stores it only after
// the insert is fully linked, so a reader's snapshot of it is a lower bound
// on what the list must contain.
type stressState struct {
	arena   *skiplist.Arena
	list    *skiplist.SkipList
	current []atomic.Int64
}

func newStressState(cfg config) *stressState {
	arena := skiplist.NewArena(cfg.arenaBlockSize)
	return &stressState{
		arena:   arena,
		list:    skiplist.NewSkipList(skiplist.Uint64Comparator, arena),
		current: make([]atomic.Int64, cfg.slots),
	}
}

func (s *stressState) writeStep(rnd *rand.Rand, slots int) {
	k := rnd.Intn(slots)
	g := uint64(s.current[k].Load()) + 1
	s.list.Insert(uint64Key(s.arena, packKey(uint64(k), g)))
	s.current[k].Store(int64(g))
}

func main() {
	cfg := parseFlags()
	if err := validateConfig(cfg); err != nil {
		fatalf("%v", err)
	}

	var logger memtable.Logger = log.New(os.Stdout, "sklstress: ", 0)
	if cfg.quiet {
		logger = memtable.NopLogger{}
	}

	logger.Printf("duration=%s readers=%d slots=%d scan_steps=%d reverse_steps=%d writer_delay=%s arena_block_size=%d max_mem_mb=%d seed=%d",
		cfg.duration,
		cfg.readers,
		cfg.slots,
		cfg.scanSteps,
		cfg.reverseSteps,
		cfg.writerDelay,
		cfg.arenaBlockSize,
		cfg.maxMemMB,
		cfg.seed,
	)

	// One scheduler per reader: each reader is a single long-running work
	// item, and a scheduler runs its items one at a time.
	schedulers := make([]*env.BackgroundScheduler, cfg.readers)
	for i := range schedulers {
		schedulers[i] = env.NewBackgroundScheduler()
	}

	start := time.Now()
	var total totals
	epochs := 0
	for remaining := cfg.duration; remaining > 0; {
		epochs++
		epochStart := time.Now()
		st := &stats{}

		err := runEpoch(logger, cfg, schedulers, epochs, remaining, st)
		total.add(st)
		if err != nil {
			fatalf("epoch=%d: %v", epochs, err)
		}

		remaining -= time.Since(epochStart)
	}

	for _, s := range schedulers {
		s.Close()
	}

	logger.Printf("PASS elapsed=%s epochs=%d writes=%d scans=%d steps=%d seeks=%d reverse=%d",
		time.Since(start).Round(time.Millisecond),
		epochs,
		total.writes,
		total.scans,
		total.scanSteps,
		total.seeks,
		total.reverses,
	)
}

func runEpoch(logger memtable.Logger, cfg config, schedulers []*env.BackgroundScheduler, epoch int, epochDur time.Duration, st *stats) error {
	state := newStressState(cfg)
	epochStart := time.Now()

	readers := make([]*readerState, cfg.readers)
	for i := range readers {
		r := &readerState{
			state:   state,
			cfg:     cfg,
			st:      st,
			seed:    cfg.seed + int64(epoch)*1000 + int64(i),
			running: make(chan struct{}),
			done:    make(chan struct{}),
		}
		readers[i] = r
		schedulers[i].Schedule(readerMain, r)
		<-r.running
	}

	stopReport := make(chan struct{})
	var reportWG sync.WaitGroup
	if cfg.reportInterval > 0 {
		reportWG.Add(1)
		go func() {
			defer reportWG.Done()
			reporter(logger, cfg, st, state, stopReport, epoch, epochStart)
		}()
	}

	// The writer runs here; Insert calls must stay on one goroutine.
	rnd := rand.New(rand.NewSource(cfg.seed + int64(epoch)*7919))
	deadline := epochStart.Add(epochDur)
	maxBytes := cfg.maxMemMB * 1024 * 1024
	rotated := false
	for i := 0; ; i++ {
		if time.Now().After(deadline) {
			break
		}
		if maxBytes > 0 && int64(state.arena.MemoryUsage()) > maxBytes {
			rotated = true
			break
		}
		if i&0x3ff == 0 && anyReaderDone(readers) {
			break
		}

		state.writeStep(rnd, cfg.slots)
		st.writes.Add(1)

		if cfg.writerDelay > 0 {
			time.Sleep(cfg.writerDelay)
		}
	}

	for _, r := range readers {
		r.quit.Store(true)
	}
	for _, r := range readers {
		<-r.done
	}
	close(stopReport)
	reportWG.Wait()

	for _, r := range readers {
		if r.err != nil {
			return r.err
		}
	}

	reason := "deadline"
	if rotated {
		reason = "mem cap"
	}
	logger.Printf("epoch=%d done (%s) elapsed=%s writes=%d scans=%d steps=%d seeks=%d reverse=%d arena=%.1fMB",
		epoch,
		reason,
		time.Since(epochStart).Round(time.Millisecond),
		st.writes.Load(),
		st.scans.Load(),
		st.scanSteps.Load(),
		st.seeks.Load(),
		st.reverses.Load(),
		float64(state.arena.MemoryUsage())/(1024.0*1024.0),
	)
	return nil
}

type readerState struct {
	state *stressState
	cfg   config
	st    *stats

	seed    int64
	quit    atomic.Bool
	running chan struct{}
	done    chan struct{}
	err     error
}

func readerMain(arg any) {
	rs := arg.(*readerState)
	rnd := rand.New(rand.NewSource(rs.seed))
	close(rs.running)
	for !rs.quit.Load() {
		var err error
		if rnd.Intn(4) == 0 {
			err = rs.reverseStep()
		} else {
			err = rs.scanStep(rnd)
		}
		if err != nil {
			rs.err = err
			rs.st.violations.Add(1)
			break
		}
	}
	close(rs.done)
}

// scanStep seeks to a random position and walks forward, checking that every
// key observed is well formed and that nothing committed before the scan
// started is missing from the range it covers.
func (rs *readerState) scanStep(rnd *rand.Rand) error {
	state := rs.state
	slots := uint64(rs.cfg.slots)

	initial := make([]int64, rs.cfg.slots)
	for k := range initial {
		initial[k] = state.current[k].Load()
	}

	pos := randomTarget(rnd, rs.cfg.slots)
	it := state.list.Iterator()
	it.Seek(uint64Key(nil, pos))
	steps := 0
	for {
		var current uint64
		if !it.Valid() {
			current = packKey(slots, 0)
		} else {
			current = keyFromBytes(it.Key())
			if !keyIsValid(current) {
				return fmt.Errorf("corrupt key observed: %#x", current)
			}
		}
		if pos > current {
			return fmt.Errorf("scan went backwards: pos=%#x current=%#x", pos, current)
		}

		// Everything in [pos, current) must have been absent when the scan
		// started. Generation zero is never inserted, so it may be missing.
		for pos < current {
			if keySlot(pos) >= slots {
				return fmt.Errorf("slot out of range: %#x", pos)
			}
			if keyGen(pos) != 0 && keyGen(pos) <= uint64(initial[keySlot(pos)]) {
				return fmt.Errorf("missing key: slot=%d gen=%d (had gen %d at scan start)",
					keySlot(pos), keyGen(pos), initial[keySlot(pos)])
			}

			if keySlot(pos) < keySlot(current) {
				pos = packKey(keySlot(pos)+1, 0)
			} else {
				pos = packKey(keySlot(pos), keyGen(pos)+1)
			}
		}

		if !it.Valid() {
			break
		}
		steps++
		rs.st.scanSteps.Add(1)
		if steps >= rs.cfg.scanSteps {
			break
		}

		if rnd.Intn(2) == 0 {
			it.Next()
			pos = packKey(keySlot(pos), keyGen(pos)+1)
		} else {
			target := randomTarget(rnd, rs.cfg.slots)
			if target > pos {
				pos = target
				it.Seek(uint64Key(nil, target))
				rs.st.seeks.Add(1)
			}
		}
	}

	rs.st.scans.Add(1)
	return nil
}

// reverseStep walks backward from the tail, checking validity and strict
// descent. Concurrent inserts may appear mid-walk; they still land strictly
// before the current position.
func (rs *readerState) reverseStep() error {
	it := rs.state.list.Iterator()
	it.SeekToLast()
	if !it.Valid() {
		return nil
	}
	prev := keyFromBytes(it.Key())
	if !keyIsValid(prev) {
		return fmt.Errorf("corrupt key observed: %#x", prev)
	}
	for i := 1; i < rs.cfg.reverseSteps; i++ {
		it.Prev()
		if !it.Valid() {
			break
		}
		cur := keyFromBytes(it.Key())
		if !keyIsValid(cur) {
			return fmt.Errorf("corrupt key observed: %#x", cur)
		}
		if cur >= prev {
			return fmt.Errorf("reverse scan not decreasing: %#x then %#x", prev, cur)
		}
		prev = cur
	}
	rs.st.reverses.Add(1)
	return nil
}

func randomTarget(rnd *rand.Rand, slots int) uint64 {
	switch rnd.Intn(10) {
	case 0:
		// Beginning of the key space.
		return packKey(0, 0)
	case 1:
		// Past the end.
		return packKey(uint64(slots), 0)
	default:
		return packKey(uint64(rnd.Intn(slots)), 0)
	}
}

func anyReaderDone(readers []*readerState) bool {
	for _, r := range readers {
		select {
		case <-r.done:
			return true
		default:
		}
	}
	return false
}

func reporter(logger memtable.Logger, cfg config, st *stats, state *stressState, stop <-chan struct{}, epoch int, epochStart time.Time) {
	ticker := time.NewTicker(cfg.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			elapsed := time.Since(epochStart).Seconds()
			writes := st.writes.Load()
			scans := st.scans.Load()
			rate := 0.0
			if elapsed > 0 {
				rate = float64(writes) / elapsed
			}
			logger.Printf("epoch=%d elapsed=%s writes=%d (%.0f/s) scans=%d steps=%d seeks=%d reverse=%d violations=%d arena=%.1fMB",
				epoch,
				time.Since(epochStart).Round(time.Second),
				writes,
				rate,
				scans,
				st.scanSteps.Load(),
				st.seeks.Load(),
				st.reverses.Load(),
				st.violations.Load(),
				float64(state.arena.MemoryUsage())/(1024.0*1024.0),
			)
		}
	}
}

func parseFlags() config {
	cfg := config{}

	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "total stress duration")
	flag.DurationVar(&cfg.reportInterval, "report-interval", 5*time.Second, "progress report interval (0 disables)")
	flag.DurationVar(&cfg.writerDelay, "writer-delay", 0, "delay per insert to limit write pressure")

	flag.IntVar(&cfg.readers, "readers", 4, "number of concurrent reader goroutines")
	flag.IntVar(&cfg.slots, "slots", 16, "number of key slots the writer cycles through")
	flag.IntVar(&cfg.scanSteps, "scan-steps", 256, "max iterator steps per forward scan")
	flag.IntVar(&cfg.reverseSteps, "reverse-steps", 64, "max iterator steps per reverse scan")

	flag.IntVar(&cfg.arenaBlockSize, "arena-block-size", 4096, "standard arena block size in bytes")
	flag.Int64Var(&cfg.maxMemMB, "max-mem-mb", 512, "rotate to a fresh list when the arena exceeds this size (0 disables)")
	flag.Int64Var(&cfg.seed, "seed", 301, "random seed")
	flag.BoolVar(&cfg.quiet, "quiet", false, "suppress progress output (violations still fail loudly)")
	flag.Parse()

	return cfg
}

func validateConfig(cfg config) error {
	if cfg.duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if cfg.reportInterval < 0 {
		return fmt.Errorf("report-interval must be >= 0")
	}
	if cfg.writerDelay < 0 {
		return fmt.Errorf("writer-delay must be >= 0")
	}
	if cfg.readers <= 0 {
		return fmt.Errorf("readers must be > 0")
	}
	if cfg.slots <= 0 || cfg.slots >= 1<<24 {
		return fmt.Errorf("slots must be in [1, 2^24)")
	}
	if cfg.scanSteps <= 0 {
		return fmt.Errorf("scan-steps must be > 0")
	}
	if cfg.reverseSteps <= 0 {
		return fmt.Errorf("reverse-steps must be > 0")
	}
	if cfg.arenaBlockSize <= 0 {
		return fmt.Errorf("arena-block-size must be > 0")
	}
	if cfg.maxMemMB < 0 {
		return fmt.Errorf("max-mem-mb must be >= 0")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sklstress: "+format+"\n", args...)
	os.Exit(1)
}
