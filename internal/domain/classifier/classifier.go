// Package classifier trains per-class token statistics and guesses the class
// of unseen text.
//
// Training tokenizes text and increments counts in a ports.TokenStore.
// Guessing tokenizes text once, asks the store for the probability of every
// token under every known class, fuses each class's probabilities with a
// Combiner (Robinson by default) and ranks the classes.
//
// The tokenizer, combiner and store are all replaceable at runtime. A
// replaced tokenizer or combiner is closed exactly once if it implements
// io.Closer; a replaced store is left open because stores are shared.
package classifier

import (
	"fmt"
	"sync"

	"github.com/corey/bayes/internal/domain/tokenizer"
	"github.com/corey/bayes/internal/ports"
)

// Classifier orchestrates tokenizer, store and combiner.
// Safe for concurrent use: Train and Guess hold a read lock so a strategy is
// never swapped out (and closed) while in use. Count consistency under
// concurrent training is the store's responsibility.
type Classifier struct {
	mu        sync.RWMutex
	store     ports.TokenStore
	tokenizer ports.Tokenizer
	combiner  Combiner
}

// Option configures a Classifier at construction time.
type Option func(*Classifier)

// WithTokenizer sets the tokenizer. nil keeps the word tokenizer.
func WithTokenizer(t ports.Tokenizer) Option {
	return func(c *Classifier) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// WithCombiner sets the combiner. nil keeps Robinson.
func WithCombiner(cb Combiner) Option {
	return func(c *Classifier) {
		if cb != nil {
			c.combiner = cb
		}
	}
}

// New creates a classifier on top of store.
func New(store ports.TokenStore, opts ...Option) (*Classifier, error) {
	if store == nil {
		return nil, invalid("nil store")
	}
	c := &Classifier{
		store:     store,
		tokenizer: tokenizer.Word,
		combiner:  Robinson,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Train tokenizes text and adds every token to class name.
func (c *Classifier) Train(name, text string) error {
	if name == "" {
		return invalid("empty class name")
	}
	if text == "" {
		return invalid("empty text")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trainLocked(name, c.tokenizer.Tokenize(text))
}

// TrainTokens adds already tokenized input to class name. Used by bulk
// trainers that tokenize in parallel.
func (c *Classifier) TrainTokens(name string, tokens []string) error {
	if name == "" {
		return invalid("empty class name")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trainLocked(name, tokens)
}

// TrainCounts adds pre-aggregated token counts to class name, one store
// write per distinct token. Zero counts and empty tokens are skipped.
func (c *Classifier) TrainCounts(name string, counts map[string]uint32) error {
	if name == "" {
		return invalid("empty class name")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for tok, n := range counts {
		if tok == "" || n == 0 {
			continue
		}
		if err := c.store.AddTokenCount(name, tok, n); err != nil {
			return fmt.Errorf("train %q: %w", name, err)
		}
	}
	return nil
}

func (c *Classifier) trainLocked(name string, tokens []string) error {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if err := c.store.AddToken(name, tok); err != nil {
			return fmt.Errorf("train %q: %w", name, err)
		}
	}
	return nil
}

// Guess ranks every known class by the probability that text belongs to it,
// highest first. Text that yields no tokens gets an empty result.
func (c *Classifier) Guess(text string) ([]Guess, error) {
	if text == "" {
		return nil, invalid("empty text")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	tokens := c.tokenizer.Tokenize(text)
	names, err := c.store.Names()
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}

	var ranked []Guess
	for _, name := range names {
		perToken, err := c.tokenGuessesLocked(name, tokens)
		if err != nil {
			return nil, err
		}
		if len(perToken) == 0 {
			continue
		}
		ranked = append(ranked, NewGuess(name, c.combiner.Combine(name, perToken)))
	}
	sortGuesses(ranked)
	return ranked, nil
}

// TokenGuesses returns the per-token probabilities of text under class name,
// sorted the way the combiner sees them. Useful to explain a ranking.
func (c *Classifier) TokenGuesses(name, text string) ([]Guess, error) {
	if name == "" {
		return nil, invalid("empty class name")
	}
	if text == "" {
		return nil, invalid("empty text")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenGuessesLocked(name, c.tokenizer.Tokenize(text))
}

func (c *Classifier) tokenGuessesLocked(name string, tokens []string) ([]Guess, error) {
	guesses := make([]Guess, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		p, err := c.store.TokenProbability(name, tok)
		if err != nil {
			return nil, fmt.Errorf("probability %q/%q: %w", name, tok, err)
		}
		guesses = append(guesses, NewGuess(tok, p))
	}
	sortGuesses(guesses)
	return guesses, nil
}

// Tokenize runs the configured tokenizer.
func (c *Classifier) Tokenize(text string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenizer.Tokenize(text)
}

// Store returns the current store.
func (c *Classifier) Store() ports.TokenStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// SetStore swaps the store. Data is not migrated; the caller keeps ownership
// of both the old and the new store.
func (c *Classifier) SetStore(store ports.TokenStore) error {
	if store == nil {
		return invalid("nil store")
	}
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
	return nil
}

// SetTokenizer swaps the tokenizer; nil restores the word tokenizer.
// The previous tokenizer is closed if it implements io.Closer.
func (c *Classifier) SetTokenizer(t ports.Tokenizer) error {
	if t == nil {
		t = tokenizer.Word
	}
	c.mu.Lock()
	prev := c.tokenizer
	c.tokenizer = t
	c.mu.Unlock()
	return release(prev)
}

// SetCombiner swaps the combiner; nil restores Robinson.
// The previous combiner is closed if it implements io.Closer.
func (c *Classifier) SetCombiner(cb Combiner) error {
	if cb == nil {
		cb = Robinson
	}
	c.mu.Lock()
	prev := c.combiner
	c.combiner = cb
	c.mu.Unlock()
	return release(prev)
}

// Close releases the tokenizer and combiner and puts the defaults back.
// The store is not closed.
func (c *Classifier) Close() error {
	c.mu.Lock()
	tok, cb := c.tokenizer, c.combiner
	c.tokenizer, c.combiner = tokenizer.Word, Robinson
	c.mu.Unlock()
	return releaseAll(tok, cb)
}
