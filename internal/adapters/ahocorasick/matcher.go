// Package ahocorasick provides multi-phrase matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/bayes/internal/ports"
)

// Matcher implements ports.PatternMatcher for the phrase tokenizer.
// Only whole-word occurrences count: "free money" matches in "get free money!"
// but not in "carefree moneybags".
// Thread safety: Match may run concurrently; Rebuild must not overlap Match.
type Matcher struct {
	automaton aho.AhoCorasick
	phrases   []string
	built     bool
}

var _ ports.PatternMatcher = (*Matcher)(nil)

// New builds a matcher for phrases.
func New(phrases []string) (*Matcher, error) {
	m := &Matcher{}
	if err := m.Rebuild(phrases); err != nil {
		return nil, err
	}
	return m, nil
}

// Rebuild compiles a new automaton, replacing the previous phrase set.
func (m *Matcher) Rebuild(phrases []string) error {
	for i, p := range phrases {
		if p == "" {
			return fmt.Errorf("phrase %d is empty", i)
		}
	}
	m.phrases = make([]string, len(phrases))
	copy(m.phrases, phrases)
	if len(m.phrases) == 0 {
		m.built = false
		return nil
	}

	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	m.automaton = builder.Build(m.phrases)
	m.built = true
	return nil
}

// Match returns each whole-word phrase occurrence in content, in order.
func (m *Matcher) Match(content string) []string {
	if !m.built || len(m.phrases) == 0 {
		return nil
	}
	matches := m.automaton.FindAll(content)
	if len(matches) == 0 {
		return nil
	}

	var result []string
	for _, match := range matches {
		if !wordBoundary(content, match.Start(), match.End()) {
			continue
		}
		result = append(result, m.phrases[match.Pattern()])
	}
	return result
}

// Len returns the number of phrases in the automaton.
func (m *Matcher) Len() int {
	return len(m.phrases)
}

// wordBoundary reports whether content[start:end] is not glued to a letter
// or digit on either side.
func wordBoundary(content string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(content[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(content) {
		r, _ := utf8.DecodeRuneInString(content[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
