package main

import "math/rand"

// makeCompressibleBytes returns n bytes that compress to roughly
// compressionRatio of their raw size: a random printable fragment of
// ratio*n bytes repeated out to length n.
func makeCompressibleBytes(r *rand.Rand, compressionRatio float64, n int) []byte {
	if n <= 0 {
		return nil
	}
	raw := int(float64(n) * compressionRatio)
	if raw < 1 {
		raw = 1
	}
	if raw > n {
		raw = n
	}
	fragment := make([]byte, raw)
	for i := range fragment {
		fragment[i] = byte(' ' + r.Intn(95))
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = fragment[i%raw]
	}
	return out
}
