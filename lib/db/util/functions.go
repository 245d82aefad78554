package util

import "math/rand/v2"

// --------------------------------------------------------------------------
// Seeded key hashing (shard selection)
// --------------------------------------------------------------------------

// NewSeed returns a random seed for HashString. Each database draws its own,
// so the same keys land in different shards across databases.
func NewSeed() uint64 {
	return rand.Uint64()
}

// Hash is a seeded 64 bit FNV-1a hash of a key
type Hash uint64

// HashString hashes s with FNV-1a, starting from the offset basis xor seed
func HashString(s string, seed uint64) Hash {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	h := uint64(offset64) ^ seed
	for _, c := range []byte(s) {
		h = (h ^ uint64(c)) * prime64
	}
	return Hash(h)
}

// Bucket maps h onto one of n buckets (n > 0). The lowest 7 bits are skipped,
// FNV-1a mixes them the least.
func (h Hash) Bucket(n int) int {
	return int((uint64(h) >> 7) % uint64(n))
}
