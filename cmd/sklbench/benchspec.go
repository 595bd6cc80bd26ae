package main

import "fmt"

type benchSpec struct {
	name string
	// prefill builds a list of num keys before the clock starts.
	prefill bool
	// useReads sizes the run by -reads instead of -num.
	useReads bool
}

func benchSpecFor(name string) (benchSpec, error) {
	switch name {
	case "fillseq":
		return benchSpec{name: name}, nil
	case "fillrandom":
		return benchSpec{name: name}, nil
	case "readseq":
		return benchSpec{name: name, prefill: true, useReads: true}, nil
	case "readreverse":
		return benchSpec{name: name, prefill: true, useReads: true}, nil
	case "readrandom":
		return benchSpec{name: name, prefill: true, useReads: true}, nil
	case "contains":
		return benchSpec{name: name, prefill: true, useReads: true}, nil
	case "snappycomp":
		return benchSpec{name: name, useReads: true}, nil
	case "snappyuncomp":
		return benchSpec{name: name, useReads: true}, nil
	default:
		return benchSpec{}, fmt.Errorf("unknown benchmark %q", name)
	}
}
