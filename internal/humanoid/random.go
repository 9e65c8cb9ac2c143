package humanoid

import (
	"math"
	"math/rand"
)

// uniform draws from U(lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// logNormal draws exp(N(mu, sigma)).
func logNormal(rng *rand.Rand, mu, sigma float64) float64 {
	return math.Exp(mu + sigma*rng.NormFloat64())
}

// LogNormal is exported for the plan editor, which models inferred move
// durations with the same distribution family.
func LogNormal(rng *rand.Rand, mu, sigma float64) float64 {
	return logNormal(rng, mu, sigma)
}

// randomSign returns -1 or +1 with equal probability.
func randomSign(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return -1
	}
	return 1
}
