package util

// Hash returns a 32-bit hash of data. Similar to murmur hash.
func Hash(data []byte, seed uint32) uint32 {
	n := uint32(len(data))
	const m uint32 = 0xc6a4a793
	const r uint32 = 24

	h := seed ^ (n * m)

	// Pick up four bytes at a time.
	i := uint32(0)
	for i+4 <= n {
		w := DecodeFixed32(data[i:])
		i += 4
		h += w
		h *= m
		h ^= (h >> 16)
	}

	// Pick up remaining bytes.
	switch n - i {
	case 3:
		h += uint32(data[i+2]) << 16
		fallthrough
	case 2:
		h += uint32(data[i+1]) << 8
		fallthrough
	case 1:
		h += uint32(data[i])
		h *= m
		h ^= (h >> r)
	}

	return h
}
