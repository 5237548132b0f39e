package classifier

import "math"

// Combiner fuses the per-token guesses of one class into a single score.
// guesses is never empty and is sorted by descending probability.
type Combiner interface {
	Combine(name string, guesses []Guess) float64
}

// CombinerFunc adapts a plain function to Combiner.
type CombinerFunc func(name string, guesses []Guess) float64

// Combine calls f.
func (f CombinerFunc) Combine(name string, guesses []Guess) float64 {
	return f(name, guesses)
}

// Robinson is the default combiner: Robinson's geometric-mean form of
// Fisher's inverse chi-square method.
//
//	v = Π(1 - g)   w = Π g
//	P = 1 - v^(1/n)   Q = 1 - w^(1/n)
//	S = (P - Q) / (P + Q)
//	result = (1 + S) / 2
//
// Uninformative tokens arrive as 0.0 and stay in the product: they drive w
// to 0 while leaving v untouched.
var Robinson Combiner = CombinerFunc(robinson)

func robinson(_ string, guesses []Guess) float64 {
	if len(guesses) == 0 {
		return 0
	}
	nth := 1.0 / float64(len(guesses))

	v, w := 1.0, 1.0
	for _, g := range guesses {
		v *= 1.0 - g.probability
		w *= g.probability
	}

	P := 1.0 - math.Pow(v, nth)
	Q := 1.0 - math.Pow(w, nth)
	if P+Q == 0 {
		return 0.5
	}
	S := (P - Q) / (P + Q)
	return (1 + S) / 2.0
}
