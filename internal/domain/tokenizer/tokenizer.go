// Package tokenizer provides the text splitting strategies used by the
// classifier. None of them is part of the counting math; they only decide
// what a "token" is.
package tokenizer

import (
	"regexp"

	"github.com/corey/bayes/internal/ports"
)

// Func adapts a plain function to ports.Tokenizer.
type Func func(text string) []string

// Tokenize calls f.
func (f Func) Tokenize(text string) []string { return f(text) }

// wordRe matches runs of letters, digits and underscores in any script.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Word splits text on word boundaries. Tokens are returned verbatim, in order,
// duplicates included.
var Word ports.Tokenizer = Func(func(text string) []string {
	return wordRe.FindAllString(text, -1)
})
