package app

import (
	"math/rand"
	"time"
)

// Shuffler produces uniform random permutations. Every call resamples.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

// NewShuffler returns a time-seeded Shuffler.
func NewShuffler() Shuffler {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// NewSeededShuffler is used by tests that need a reproducible order.
func NewSeededShuffler(seed int64) Shuffler {
	return rand.New(rand.NewSource(seed))
}

// Shuffled returns a shuffled copy of items; the input is left untouched.
func Shuffled[T any](rnd Shuffler, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
