// Package estimator computes the class-membership probability of a single
// token from four table counts. It is pure arithmetic: stores fetch the
// counts however suits their backend and hand them to Probability.
package estimator

import "math"

const (
	// MinProbability and MaxProbability bound an informative result so the
	// combiner never sees exactly 0 or 1 from a real score.
	MinProbability = 0.0001
	MaxProbability = 0.9999

	// InformativeMargin is how far from 0.5 a score must be to count.
	InformativeMargin = 0.1

	// Uninformative is returned for tokens too close to 50/50. Combiners
	// receive it as is.
	Uninformative = 0.0
)

// Counts are the table reads one probability needs.
type Counts struct {
	Pool   uint64 // running total of the class
	Corpus uint64 // running total of the corpus
	This   uint64 // token count within the class
	Total  uint64 // token count across the corpus
}

// Probability returns how specific the token is to the class: a value in
// [MinProbability, MaxProbability], or Uninformative.
//
//	good = min(1, other/pool)      (1 when pool is 0)
//	bad  = min(1, this/max(corpus-pool, 1))
//	f    = bad / (good + bad)
func Probability(c Counts) float64 {
	pool := float64(c.Pool)
	them := math.Max(float64(c.Corpus)-pool, 1)
	this := float64(c.This)
	other := float64(c.Total) - this

	good := 1.0
	if c.Pool != 0 {
		good = math.Min(1.0, other/pool)
	}
	bad := math.Min(1.0, this/them)

	// 0/0: token absent from the class and from every other class.
	if good+bad == 0 {
		return Uninformative
	}

	f := bad / (good + bad)
	if math.Abs(f-0.5) >= InformativeMargin {
		return math.Max(MinProbability, math.Min(MaxProbability, f))
	}
	return Uninformative
}
