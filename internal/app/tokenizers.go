package app

import (
	"fmt"
	"strings"

	"github.com/corey/bayes/internal/adapters/ahocorasick"
	"github.com/corey/bayes/internal/domain/tokenizer"
	"github.com/corey/bayes/internal/ports"
)

// Tokenizer kinds accepted in [tokenizer] kind.
const (
	TokenizerWord       = "word"
	TokenizerCode       = "code"
	TokenizerIdentifier = "identifier"
	TokenizerPhrase     = "phrase"
)

var tokenizerKinds = map[string]ports.Tokenizer{
	TokenizerWord:       tokenizer.Word,
	TokenizerCode:       tokenizer.Code,
	TokenizerIdentifier: tokenizer.Identifier,
	TokenizerPhrase:     tokenizer.Word, // base of the phrase tokenizer
}

// NewTokenizer builds the tokenizer a config names. The phrase kind owns an
// Aho-Corasick automaton and implements io.Closer.
func NewTokenizer(cfg TokenizerConfig) (ports.Tokenizer, error) {
	kind := strings.ToLower(cfg.Kind)
	if kind == "" {
		kind = TokenizerWord
	}
	base, ok := tokenizerKinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown tokenizer kind %q", cfg.Kind)
	}
	if kind != TokenizerPhrase {
		if len(cfg.Phrases) > 0 {
			return nil, fmt.Errorf("phrases require kind %q", TokenizerPhrase)
		}
		return base, nil
	}

	m, err := ahocorasick.New(nil)
	if err != nil {
		return nil, err
	}
	p, err := tokenizer.NewPhrase(base, m, cfg.Phrases)
	if err != nil {
		return nil, fmt.Errorf("phrases: %w", err)
	}
	return p, nil
}
