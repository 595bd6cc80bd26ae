package memtable

import (
	"cmp"
	"errors"
	"fmt"
)

type Options struct {
	// Comparator orders user keys. Nil means BytewiseComparator.
	Comparator Comparator

	// ArenaBlockSize is the standard allocation unit of the backing arena.
	// Allocations larger than a quarter of it get a dedicated block.
	ArenaBlockSize int
}

func DefaultOptions() *Options {
	return &Options{
		ArenaBlockSize: 64 * 1024,
	}
}

var (
	ErrCorruption      = errors.New("corrupted")
	ErrInvalidArgument = errors.New("invalid argument")
)

func validateOptions(userOpt *Options) (*Options, error) {
	if userOpt == nil {
		return nil, fmt.Errorf("%w: option is nil", ErrInvalidArgument)
	}

	opt := &Options{}

	opt.ArenaBlockSize = clipToRange(userOpt.ArenaBlockSize, 4<<10, 4<<20)

	if userOpt.Comparator != nil {
		opt.Comparator = userOpt.Comparator
	} else {
		opt.Comparator = BytewiseComparator
	}

	return opt, nil
}

func clipToRange[T cmp.Ordered](val, minVal, maxVal T) T {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
