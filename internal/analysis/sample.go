package analysis

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"requiem/internal/errors"
)

// Synthetic samples are clipped to this range of daily hours
const (
	sampleMin = 0.5
	sampleMax = 24.0
)

// MaxSampleSize bounds a synthetic sample
const MaxSampleSize = 100000

// GenerateSample draws n usage values from a gamma distribution with the
// given mean and deviation. A non-positive deviation falls back to 0.1.
func GenerateSample(n int, mean, stdDev float64, src rand.Source) ([]float64, error) {
	if n < MinObservations || n > MaxSampleSize {
		return nil, errors.InvalidInput("sample size must be between 3 and 100000")
	}
	if mean <= 0 {
		return nil, errors.InvalidInput("sample mean must be positive")
	}
	if stdDev <= 0 {
		stdDev = 0.1
	}

	shape := (mean / stdDev) * (mean / stdDev)
	scale := stdDev * stdDev / mean
	gamma := distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: src}

	values := make([]float64, n)
	for i := range values {
		values[i] = clamp(gamma.Rand(), sampleMin, sampleMax)
	}
	return values, nil
}

// simulateNull draws n values from normal(mu, sigma) with a fixed seed so
// the comparison chapter is reproducible
func simulateNull(n int, mu, sigma float64) []float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rand.NewPCG(42, 0)}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
