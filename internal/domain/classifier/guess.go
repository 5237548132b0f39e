package classifier

import (
	"fmt"
	"math"
	"sort"
)

// Guess is an immutable (label, probability) pair. The label is a class name
// for ranked results, or a token for the per-token inputs of a Combiner.
type Guess struct {
	name        string
	probability float64
}

// NewGuess clamps probability to [0, 1]. NaN becomes 0.
func NewGuess(name string, probability float64) Guess {
	switch {
	case math.IsNaN(probability) || probability < 0:
		probability = 0
	case probability > 1:
		probability = 1
	}
	return Guess{name: name, probability: probability}
}

// Name returns the class name (or token) this guess is about.
func (g Guess) Name() string { return g.name }

// Probability returns a value in [0, 1].
func (g Guess) Probability() float64 { return g.probability }

func (g Guess) String() string {
	return fmt.Sprintf("%s=%.4f", g.name, g.probability)
}

// sortGuesses orders guesses by descending probability, keeping the original
// order on ties.
func sortGuesses(guesses []Guess) {
	sort.SliceStable(guesses, func(i, j int) bool {
		return guesses[i].probability > guesses[j].probability
	})
}
