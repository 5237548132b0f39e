// Package storetest is a conformance suite for ports.TokenStore backends.
// Every adapter runs it from its own tests so memory, bbolt and redis stay
// interchangeable behind the classifier.
package storetest

import (
	"testing"

	"github.com/corey/bayes/internal/domain/estimator"
	"github.com/corey/bayes/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OpenFunc returns a fresh, empty store. Cleanup is registered on t.
type OpenFunc func(t *testing.T) ports.TokenStore

// Run executes every conformance test against stores produced by open.
func Run(t *testing.T, open OpenFunc) {
	t.Run("CountsAfterAdd", func(t *testing.T) { testCountsAfterAdd(t, open(t)) })
	t.Run("InvalidArguments", func(t *testing.T) { testInvalidArguments(t, open(t)) })
	t.Run("MissingReadsZero", func(t *testing.T) { testMissingReadsZero(t, open(t)) })
	t.Run("CorpusMirrorsClasses", func(t *testing.T) { testCorpusMirrorsClasses(t, open(t)) })
	t.Run("Names", func(t *testing.T) { testNames(t, open(t)) })
	t.Run("Probability", func(t *testing.T) { testProbability(t, open(t)) })
	t.Run("UntrainedProbability", func(t *testing.T) { testUntrainedProbability(t, open(t)) })
	t.Run("SnapshotRoundtrip", func(t *testing.T) { testSnapshotRoundtrip(t, open) })
	t.Run("RestoreRejectsInvalid", func(t *testing.T) { testRestoreRejectsInvalid(t, open(t)) })
}

// Fill trains a small two-class data set used across the suite.
func Fill(t *testing.T, s ports.TokenStore) {
	t.Helper()
	require.NoError(t, s.AddToken("english", "turbo"))
	require.NoError(t, s.AddToken("english", "brakes"))
	require.NoError(t, s.AddToken("english", "suspension"))
	require.NoError(t, s.AddTokenCount("english", "the", 4))
	require.NoError(t, s.AddTokenCount("german", "bremsen", 2))
	require.NoError(t, s.AddTokenCount("german", "the", 1))
	require.NoError(t, s.AddTokenCount("german", "turbo", 3))
}

func count(t *testing.T, s ports.TokenStore, name, token string) uint64 {
	t.Helper()
	n, err := s.TokenCount(name, token)
	require.NoError(t, err)
	return n
}

func testCountsAfterAdd(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	assert.Equal(t, uint64(1), count(t, s, "english", "turbo"))
	assert.Equal(t, uint64(4), count(t, s, "english", "the"))
	assert.Equal(t, uint64(0), count(t, s, "english", "cops"))
	assert.Equal(t, uint64(7), count(t, s, "english", ""))
	assert.Equal(t, uint64(6), count(t, s, "german", ""))
	assert.Equal(t, uint64(4), count(t, s, "", "turbo"))
	assert.Equal(t, uint64(5), count(t, s, "", "the"))
}

func testInvalidArguments(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	before := count(t, s, "", "turbo")

	assert.ErrorIs(t, s.AddTokenCount("", "turbo", 1), ports.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddTokenCount("english", "", 1), ports.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddTokenCount("english", "turbo", 0), ports.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddToken("", "turbo"), ports.ErrInvalidArgument)

	_, err := s.TokenCount("", "")
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)
	_, err = s.TokenProbability("", "turbo")
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)
	_, err = s.TokenProbability("english", "")
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)

	// Rejected calls leave the state unchanged.
	assert.Equal(t, before, count(t, s, "", "turbo"))
	assert.Equal(t, uint64(1), count(t, s, "english", "turbo"))
}

func testMissingReadsZero(t *testing.T, s ports.TokenStore) {
	assert.Equal(t, uint64(0), count(t, s, "nobody", "nothing"))
	assert.Equal(t, uint64(0), count(t, s, "nobody", ""))
	assert.Equal(t, uint64(0), count(t, s, "", "nothing"))
	names, err := s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func testCorpusMirrorsClasses(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	names, err := s.Names()
	require.NoError(t, err)

	tokens := []string{"turbo", "brakes", "suspension", "the", "bremsen", "cops"}
	for _, tok := range tokens {
		var sum uint64
		corpus := count(t, s, "", tok)
		for _, name := range names {
			n := count(t, s, name, tok)
			assert.LessOrEqual(t, n, corpus, "class %s token %s", name, tok)
			sum += n
		}
		assert.Equal(t, corpus, sum, "token %s", tok)
	}

	var total uint64
	for _, name := range names {
		classTotal := count(t, s, name, "")
		var sum uint64
		for _, tok := range tokens {
			sum += count(t, s, name, tok)
		}
		assert.Equal(t, classTotal, sum, "class %s", name)
		total += classTotal
	}
	assert.Equal(t, uint64(13), total)
}

func testNames(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	require.NoError(t, s.AddToken("english", "again"))
	names, err := s.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"english", "german"}, names)

	again, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, names, again, "order must be stable within one instance")
}

func testProbability(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	for _, name := range []string{"english", "german"} {
		for _, tok := range []string{"turbo", "brakes", "the", "bremsen", "cops"} {
			want := estimator.Probability(estimator.Counts{
				Pool:   count(t, s, name, ""),
				Corpus: 13,
				This:   count(t, s, name, tok),
				Total:  count(t, s, "", tok),
			})
			got, err := s.TokenProbability(name, tok)
			require.NoError(t, err)
			assert.Equal(t, want, got, "class %s token %s", name, tok)
			if got != estimator.Uninformative {
				assert.GreaterOrEqual(t, got, estimator.MinProbability)
				assert.LessOrEqual(t, got, estimator.MaxProbability)
			}
		}
	}
}

func testUntrainedProbability(t *testing.T, s ports.TokenStore) {
	Fill(t, s)
	p, err := s.TokenProbability("french", "turbo")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func testSnapshotRoundtrip(t *testing.T, open OpenFunc) {
	src := open(t)
	snap, ok := src.(ports.Snapshotter)
	if !ok {
		t.Skip("store does not implement ports.Snapshotter")
	}
	Fill(t, src)

	doc, err := snap.Snapshot()
	require.NoError(t, err)
	require.NoError(t, doc.Validate())
	assert.Equal(t, uint64(7), doc.Names["english"].Count)
	assert.Equal(t, uint64(4), doc.Corpus.Tokens["turbo"])
	assert.Equal(t, uint64(13), doc.Corpus.Count)

	dst := open(t)
	require.NoError(t, dst.(ports.Snapshotter).Restore(doc))

	srcNames, err := src.Names()
	require.NoError(t, err)
	dstNames, err := dst.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, srcNames, dstNames)

	for _, name := range []string{"english", "german", ""} {
		for _, tok := range []string{"turbo", "the", "bremsen", "cops", ""} {
			if name == "" && tok == "" {
				continue
			}
			assert.Equal(t, count(t, src, name, tok), count(t, dst, name, tok), "%q/%q", name, tok)
			if name != "" && tok != "" {
				a, err := src.TokenProbability(name, tok)
				require.NoError(t, err)
				b, err := dst.TokenProbability(name, tok)
				require.NoError(t, err)
				assert.Equal(t, a, b, "%q/%q", name, tok)
			}
		}
	}
}

func testRestoreRejectsInvalid(t *testing.T, s ports.TokenStore) {
	snap, ok := s.(ports.Snapshotter)
	if !ok {
		t.Skip("store does not implement ports.Snapshotter")
	}
	Fill(t, s)

	bad := ports.NewSnapshot()
	bad.Names["spam"] = &ports.TableSnapshot{Tokens: map[string]uint64{"buy": 2}, Count: 5}
	assert.ErrorIs(t, snap.Restore(bad), ports.ErrInvalidArgument)

	// Nothing changed.
	assert.Equal(t, uint64(7), count(t, s, "english", ""))
	assert.Equal(t, uint64(0), count(t, s, "spam", ""))
}
