// Package rng derives independent deterministic random sub-streams from a
// single run seed. The cellular engine hands each cell its own sub-stream so
// that a seeded run reproduces bit-identically regardless of worker count.
package rng

import "math/rand"

// SplitMix64 increment and mixing constants.
const (
	gamma = 0x9e3779b97f4a7c15
	mix1  = 0xbf58476d1ce4e5b9
	mix2  = 0x94d049bb133111eb
)

func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Derive maps (seed, stream) to a new seed. Distinct stream ids yield
// decorrelated seeds even when the inputs are small consecutive integers.
func Derive(seed int64, stream int64) int64 {
	z := uint64(seed) + gamma
	z = mix(z)
	z += uint64(stream) + gamma
	return int64(mix(z))
}

// New returns a generator seeded from the given seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// ForStream returns a generator for a named sub-stream of the run seed.
func ForStream(seed int64, stream int64) *rand.Rand {
	return New(Derive(seed, stream))
}

// ForCell returns the generator assigned to one cell in one generation.
// The stream id folds the generation and the cell index together so no two
// (generation, cell) pairs share a stream.
func ForCell(seed int64, generation, cell int) *rand.Rand {
	return ForStream(Derive(seed, int64(generation)), int64(cell))
}
