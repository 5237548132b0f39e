// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidArgument is returned when a required class name, token or text is
// empty, or a zero count is passed to an increment. It is always detected
// before any mutation, so the store is unchanged when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")

// TokenStore holds per-class token counts plus one aggregate corpus table.
// Every backend (memory, bbolt, redis) must honor identical semantics:
//
//   - counts only grow; there is no decrement
//   - corpus.count(t) == sum of every class's count(t)
//   - a table's total == sum of its token counts
//   - missing classes or tokens read as 0, never as an error
type TokenStore interface {
	// AddTokenCount adds count occurrences of token to class name and mirrors
	// them into the corpus. The class table is created on first use.
	// Returns ErrInvalidArgument for an empty name/token or a zero count.
	AddTokenCount(name, token string, count uint32) error

	// AddToken is AddTokenCount(name, token, 1).
	AddToken(name, token string) error

	// Names returns every class trained so far. Order is backend-defined
	// but stable for one instance.
	Names() ([]string, error)

	// TokenCount reads a count. An empty string means "omitted":
	//   name+token -> token count within the class
	//   name only  -> the class total
	//   token only -> the token count across the corpus
	// Omitting both returns ErrInvalidArgument.
	TokenCount(name, token string) (uint64, error)

	// TokenProbability returns the class-membership probability of token
	// for class name. 0.0 for a class that has never been trained.
	TokenProbability(name, token string) (float64, error)
}

// Snapshotter is implemented by stores that can export and import their full
// state as a persistence document.
type Snapshotter interface {
	// Snapshot returns a deep copy of the current state.
	Snapshot() (*Snapshot, error)

	// Restore replaces the whole state with snap. The snapshot is validated
	// first; an invalid snapshot leaves the store untouched.
	Restore(snap *Snapshot) error
}

// Snapshot is the persistence document: every class table plus the corpus.
// Field names are part of the on-disk format and must not change.
type Snapshot struct {
	Names  map[string]*TableSnapshot `json:"names" msgpack:"names"`
	Corpus *TableSnapshot            `json:"corpus" msgpack:"corpus"`
}

// TableSnapshot is one token table: token -> count plus the running total.
type TableSnapshot struct {
	Tokens map[string]uint64 `json:"tokens" msgpack:"tokens"`
	Count  uint64            `json:"count" msgpack:"count"`
}

// NewSnapshot returns an empty snapshot with all maps initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Names:  make(map[string]*TableSnapshot),
		Corpus: &TableSnapshot{Tokens: make(map[string]uint64)},
	}
}

// Validate checks the document invariants: non-empty names and tokens, every
// total equal to its token sum, and a corpus equal to the sum of the classes.
// When the corpus token map is absent or empty it is re-derived from the
// classes instead of being checked.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidArgument)
	}
	if s.Names == nil {
		s.Names = make(map[string]*TableSnapshot)
	}
	derived := &TableSnapshot{Tokens: make(map[string]uint64)}
	for name, table := range s.Names {
		if name == "" {
			return fmt.Errorf("%w: empty class name in snapshot", ErrInvalidArgument)
		}
		if table == nil {
			return fmt.Errorf("%w: class %q has no table", ErrInvalidArgument, name)
		}
		if err := table.validate(); err != nil {
			return fmt.Errorf("class %q: %w", name, err)
		}
		for tok, n := range table.Tokens {
			sum, err := addCount(derived.Tokens[tok], n)
			if err != nil {
				return fmt.Errorf("corpus token %q: %w", tok, err)
			}
			derived.Tokens[tok] = sum
		}
		sum, err := addCount(derived.Count, table.Count)
		if err != nil {
			return fmt.Errorf("corpus total: %w", err)
		}
		derived.Count = sum
	}

	if s.Corpus == nil || len(s.Corpus.Tokens) == 0 {
		s.Corpus = derived
		return nil
	}
	if err := s.Corpus.validate(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if s.Corpus.Count != derived.Count || len(s.Corpus.Tokens) != len(derived.Tokens) {
		return fmt.Errorf("%w: corpus does not match the sum of its classes", ErrInvalidArgument)
	}
	for tok, n := range derived.Tokens {
		if s.Corpus.Tokens[tok] != n {
			return fmt.Errorf("%w: corpus count for %q is %d, classes sum to %d",
				ErrInvalidArgument, tok, s.Corpus.Tokens[tok], n)
		}
	}
	return nil
}

func (t *TableSnapshot) validate() error {
	if t.Tokens == nil {
		t.Tokens = make(map[string]uint64)
	}
	var (
		sum uint64
		err error
	)
	for tok, n := range t.Tokens {
		if tok == "" {
			return fmt.Errorf("%w: empty token", ErrInvalidArgument)
		}
		if sum, err = addCount(sum, n); err != nil {
			return err
		}
	}
	if sum != t.Count {
		return fmt.Errorf("%w: total %d does not match token sum %d", ErrInvalidArgument, t.Count, sum)
	}
	return nil
}

func addCount(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: count overflow", ErrInvalidArgument)
	}
	return sum, nil
}

// CheckAdd validates AddTokenCount arguments.
func CheckAdd(name, token string, count uint32) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty class name", ErrInvalidArgument)
	case token == "":
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	case count == 0:
		return fmt.Errorf("%w: zero count", ErrInvalidArgument)
	}
	return nil
}

// CheckCount validates TokenCount arguments.
func CheckCount(name, token string) error {
	if name == "" && token == "" {
		return fmt.Errorf("%w: class name or token required", ErrInvalidArgument)
	}
	return nil
}

// CheckProbability validates TokenProbability arguments.
func CheckProbability(name, token string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty class name", ErrInvalidArgument)
	case token == "":
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	return nil
}
