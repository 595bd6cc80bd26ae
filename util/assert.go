//go:build !debug

package util

import "sync"

// Assertions compile to no-ops unless the debug build tag is set.

func Assert(cond bool) {}

func AssertFunc(fn func() bool) {}

func AssertMutexHeld(mu *sync.Mutex) {}
