package util

// Random is a Lehmer linear congruential generator over the prime modulus
// 2^31-1. Not goroutine safe.
type Random struct {
	seed uint32
}

const randomM = 2147483647 // 2^31-1

func NewRandom(seed uint32) *Random {
	r := &Random{seed: seed & 0x7fffffff}
	// Avoid bad seeds.
	if r.seed == 0 || r.seed == randomM {
		r.seed = 1
	}
	return r
}

func (r *Random) Next() uint32 {
	const a = 16807
	product := uint64(r.seed) * a

	// Compute (product % M) using the fact that ((x << 31) % M) == x.
	r.seed = uint32((product >> 31) + (product & randomM))
	// The first reduction may overflow by 1 bit, so we may need to repeat.
	if r.seed > randomM {
		r.seed -= randomM
	}
	return r.seed
}

// Uniform returns a value in [0, n). Requires n > 0.
func (r *Random) Uniform(n int) uint32 {
	return r.Next() % uint32(n)
}

// OneIn returns true with probability 1/n. Requires n > 0.
func (r *Random) OneIn(n int) bool {
	return r.Next()%uint32(n) == 0
}
