//go:build debug

package util

import (
	"fmt"
	"runtime"
	"sync"
)

func Assert(cond bool) {
	if !cond {
		fail("")
	}
}

// AssertFunc is Assert for conditions that are expensive to evaluate.
// The closure is never called in non-debug builds.
func AssertFunc(fn func() bool) {
	if !fn() {
		fail("")
	}
}

func AssertMutexHeld(mu *sync.Mutex) {
	if mu.TryLock() {
		mu.Unlock()
		fail("mutex not held")
	}
}

func fail(detail string) {
	msg := "assertion failed"
	if pc, file, no, ok := runtime.Caller(2); ok {
		msg = fmt.Sprintf("assertion failed (%s:%d:%s)", file, no, runtime.FuncForPC(pc).Name())
	}
	if detail != "" {
		msg += ": " + detail
	}
	panic(msg)
}
