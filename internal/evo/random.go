package evo

import "math/rand"

// RandomSource is the randomness consumed by seeding and mutation.
// *rand.Rand satisfies it.
type RandomSource interface {
	NormFloat64() float64
}

// SourceFactory returns the random source used to breed one generation.
type SourceFactory func(generationID int) RandomSource

// SeededSourceFactory derives an independent, reproducible stream per
// generation id from a single seed.
func SeededSourceFactory(seed int64) SourceFactory {
	return func(generationID int) RandomSource {
		return rand.New(rand.NewSource(seed + int64(generationID)*1_000_003))
	}
}
