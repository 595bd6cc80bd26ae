package env

import (
	"sync"

	"github.com/ls4154/memtable/util"
)

// Scheduler runs submitted work items asynchronously. Implementations decide
// on which goroutine and in what order the items run.
type Scheduler interface {
	Schedule(work func(arg any), arg any)
}

// BackgroundScheduler runs work items one at a time, in submission order, on
// a single background goroutine. The goroutine is started lazily on the
// first Schedule call.
//
// Passed as a capability to whatever component needs asynchronous execution,
// so tests can substitute their own Scheduler.
type BackgroundScheduler struct {
	mu      sync.Mutex
	workCv  *sync.Cond
	queue   []workItem
	started bool
	closed  bool
	wg      sync.WaitGroup
}

type workItem struct {
	work func(arg any)
	arg  any
}

var _ Scheduler = &BackgroundScheduler{}

func NewBackgroundScheduler() *BackgroundScheduler {
	s := &BackgroundScheduler{}
	s.workCv = sync.NewCond(&s.mu)
	return s
}

// Schedule queues work to run with arg on the background goroutine.
// Must not be called after Close.
func (s *BackgroundScheduler) Schedule(work func(arg any), arg any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	util.Assert(!s.closed)

	if !s.started {
		s.started = true
		s.wg.Add(1)
		go s.backgroundMain()
	}

	if len(s.queue) == 0 {
		s.workCv.Signal()
	}
	s.queue = append(s.queue, workItem{work: work, arg: arg})
}

func (s *BackgroundScheduler) backgroundMain() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.workCv.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		item := s.popLocked()
		s.mu.Unlock()

		item.work(item.arg)
	}
}

func (s *BackgroundScheduler) popLocked() workItem {
	util.AssertMutexHeld(&s.mu)

	item := s.queue[0]
	s.queue[0] = workItem{}
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	return item
}

// Close runs any work still queued, then stops the background goroutine.
// Idempotent.
func (s *BackgroundScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.workCv.Signal()
	s.mu.Unlock()

	if started {
		s.wg.Wait()
	}
}
