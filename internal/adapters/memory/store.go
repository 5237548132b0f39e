// Package memory implements ports.TokenStore with plain Go maps.
// It is meant for small data sets and for trying things out; persistence is
// done by snapshotting through the codec package.
package memory

import (
	"sort"
	"sync"

	"github.com/corey/bayes/internal/domain/estimator"
	"github.com/corey/bayes/internal/ports"
)

// table is one token table: token -> count plus the running total.
type table struct {
	tokens map[string]uint64
	count  uint64
}

func newTable() *table {
	return &table{tokens: make(map[string]uint64)}
}

func (t *table) inc(token string, n uint64) {
	t.tokens[token] += n
	t.count += n
}

// Store implements ports.TokenStore in memory.
// Names are returned in insertion order. A single RWMutex serializes writers;
// readers run concurrently.
type Store struct {
	mu     sync.RWMutex
	names  map[string]*table
	order  []string // class names in first-trained order
	corpus *table
}

var (
	_ ports.TokenStore  = (*Store)(nil)
	_ ports.Snapshotter = (*Store)(nil)
)

// New creates an empty store. The corpus table exists from the start.
func New() *Store {
	return &Store{
		names:  make(map[string]*table),
		corpus: newTable(),
	}
}

// AddTokenCount adds count to token in class name and in the corpus.
func (s *Store) AddTokenCount(name, token string, count uint32) error {
	if err := ports.CheckAdd(name, token, count); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.names[name]
	if !ok {
		t = newTable()
		s.names[name] = t
		s.order = append(s.order, name)
	}
	t.inc(token, uint64(count))
	s.corpus.inc(token, uint64(count))
	return nil
}

// AddToken adds a single occurrence of token to class name.
func (s *Store) AddToken(name, token string) error {
	return s.AddTokenCount(name, token, 1)
}

// Names returns the class names in the order they were first trained.
func (s *Store) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// TokenCount reads a class count, a class total or a corpus count.
func (s *Store) TokenCount(name, token string) (uint64, error) {
	if err := ports.CheckCount(name, token); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(name, token), nil
}

func (s *Store) countLocked(name, token string) uint64 {
	t := s.corpus
	if name != "" {
		t = s.names[name]
	}
	if t == nil {
		return 0
	}
	if token == "" {
		return t.count
	}
	return t.tokens[token]
}

// TokenProbability returns the probability that token belongs to class name.
func (s *Store) TokenProbability(name, token string) (float64, error) {
	if err := ports.CheckProbability(name, token); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.names[name]
	if !ok {
		return 0.0, nil
	}
	return estimator.Probability(estimator.Counts{
		Pool:   t.count,
		Corpus: s.corpus.count,
		This:   t.tokens[token],
		Total:  s.corpus.tokens[token],
	}), nil
}

// Snapshot returns a deep copy of the store.
func (s *Store) Snapshot() (*ports.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := ports.NewSnapshot()
	for name, t := range s.names {
		snap.Names[name] = t.snapshot()
	}
	snap.Corpus = s.corpus.snapshot()
	return snap, nil
}

func (t *table) snapshot() *ports.TableSnapshot {
	ts := &ports.TableSnapshot{Tokens: make(map[string]uint64, len(t.tokens)), Count: t.count}
	for tok, n := range t.tokens {
		ts.Tokens[tok] = n
	}
	return ts
}

// Restore replaces the store contents with snap. Class order after a restore
// is sorted, since the document does not carry insertion order.
func (s *Store) Restore(snap *ports.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	names := make(map[string]*table, len(snap.Names))
	order := sortedKeys(snap.Names)
	for _, name := range order {
		names[name] = restoreTable(snap.Names[name])
	}
	corpus := restoreTable(snap.Corpus)

	s.mu.Lock()
	s.names, s.order, s.corpus = names, order, corpus
	s.mu.Unlock()
	return nil
}

func restoreTable(ts *ports.TableSnapshot) *table {
	t := &table{tokens: make(map[string]uint64, len(ts.Tokens)), count: ts.Count}
	for tok, n := range ts.Tokens {
		t.tokens[tok] = n
	}
	return t
}

func sortedKeys(m map[string]*ports.TableSnapshot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
