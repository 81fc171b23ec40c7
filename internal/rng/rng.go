// Package rng provides the seeded random source a battle threads through every
// probabilistic decision.
package rng

import (
	"hash/fnv"
	"math/rand"
)

// SeedValue derives a stable non-zero seed from a root seed string and a
// subsystem label.
func SeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// PRNG is a deterministic random source. It is not safe for concurrent use;
// each battle owns exactly one.
type PRNG struct {
	seed  int64
	src   *rand.Rand
	calls uint64
}

// New seeds a PRNG from a root seed and label.
func New(rootSeed, label string) *PRNG {
	return NewFromValue(SeedValue(rootSeed, label))
}

// NewFromValue seeds a PRNG from a raw seed value.
func NewFromValue(seed int64) *PRNG {
	return &PRNG{seed: seed, src: rand.New(rand.NewSource(seed))}
}

// Seed returns the value the generator was created with.
func (p *PRNG) Seed() int64 {
	if p == nil {
		return 0
	}
	return p.seed
}

// Calls reports how many draws have been taken. Two battles that diverge in
// their draw counts have diverged in behavior.
func (p *PRNG) Calls() uint64 {
	if p == nil {
		return 0
	}
	return p.calls
}

// Random returns an integer in [0, n). n <= 0 yields 0 without a draw.
func (p *PRNG) Random(n int) int {
	if p == nil || n <= 0 {
		return 0
	}
	p.calls++
	return p.src.Intn(n)
}

// Range returns an integer in [min, max).
func (p *PRNG) Range(min, max int) int {
	if max <= min {
		return min
	}
	return min + p.Random(max-min)
}

// Chance reports true with probability numerator/denominator.
func (p *PRNG) Chance(numerator, denominator int) bool {
	if denominator <= 0 || numerator <= 0 {
		return false
	}
	if numerator >= denominator {
		return true
	}
	return p.Random(denominator) < numerator
}

// Shuffle permutes items[start:end] in place with Fisher-Yates.
func Shuffle[T any](p *PRNG, items []T, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(items) {
		end = len(items)
	}
	for i := start; i < end-1; i++ {
		j := i + p.Random(end-i)
		items[i], items[j] = items[j], items[i]
	}
}

// Sample returns a uniformly chosen element. ok is false for an empty slice.
func Sample[T any](p *PRNG, items []T) (value T, ok bool) {
	if len(items) == 0 {
		return value, false
	}
	return items[p.Random(len(items))], true
}
