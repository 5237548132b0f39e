package tokenizer

import (
	"errors"
	"io"
	"strings"

	"github.com/corey/bayes/internal/ports"
)

// Phrase appends multi-word phrases to the output of a base tokenizer so that
// "free money" can count as one token next to "free" and "money".
// Matching is case-insensitive: phrases and text are lowercased.
type Phrase struct {
	base    ports.Tokenizer
	matcher ports.PatternMatcher
}

var _ io.Closer = (*Phrase)(nil)

// NewPhrase builds a phrase tokenizer. base == nil uses Word.
func NewPhrase(base ports.Tokenizer, matcher ports.PatternMatcher, phrases []string) (*Phrase, error) {
	if base == nil {
		base = Word
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(p)))
	}
	if err := matcher.Rebuild(lowered); err != nil {
		return nil, err
	}
	return &Phrase{base: base, matcher: matcher}, nil
}

// Tokenize returns the base tokens followed by every phrase occurrence.
func (p *Phrase) Tokenize(text string) []string {
	tokens := p.base.Tokenize(text)
	return append(tokens, p.matcher.Match(strings.ToLower(text))...)
}

// Close drops the automaton. The base tokenizer is closed too when it owns
// resources.
func (p *Phrase) Close() error {
	err := p.matcher.Rebuild(nil)
	if c, ok := p.base.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
