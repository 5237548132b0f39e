package memory

import (
	"sync"
	"testing"

	"github.com/corey/bayes/internal/ports"
	"github.com/corey/bayes/internal/ports/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.TokenStore { return New() })
}

func TestStore_NamesInsertionOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.AddToken("zeta", "a"))
	require.NoError(t, s.AddToken("alpha", "b"))
	require.NoError(t, s.AddToken("mid", "c"))
	require.NoError(t, s.AddToken("zeta", "d"))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestStore_NamesReturnsCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.AddToken("spam", "buy"))
	names, _ := s.Names()
	names[0] = "mutated"

	again, _ := s.Names()
	assert.Equal(t, []string{"spam"}, again)
}

func TestStore_ScenarioA(t *testing.T) {
	s := New()
	for _, tok := range []string{"turbo", "brakes", "suspension"} {
		require.NoError(t, s.AddToken("english", tok))
	}
	n, err := s.TokenCount("english", "turbo")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	n, err = s.TokenCount("english", "cops")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestStore_EmptyClassProbability(t *testing.T) {
	s := New()
	p, err := s.TokenProbability("never", "trained")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.AddToken("spam", "buy"))
	snap, err := s.Snapshot()
	require.NoError(t, err)

	snap.Names["spam"].Tokens["buy"] = 99
	n, _ := s.TokenCount("spam", "buy")
	assert.Equal(t, uint64(1), n)
}

func TestStore_RestoreDerivesCorpus(t *testing.T) {
	s := New()
	snap := &ports.Snapshot{
		Names: map[string]*ports.TableSnapshot{
			"spam": {Tokens: map[string]uint64{"buy": 3, "now": 1}, Count: 4},
			"ham":  {Tokens: map[string]uint64{"buy": 1}, Count: 1},
		},
	}
	require.NoError(t, s.Restore(snap))

	n, _ := s.TokenCount("", "buy")
	assert.Equal(t, uint64(4), n)
	names, _ := s.Names()
	assert.Equal(t, []string{"ham", "spam"}, names)
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				_ = s.AddToken("spam", "buy")
				_, _ = s.TokenProbability("spam", "buy")
			}
		}()
	}
	wg.Wait()

	n, _ := s.TokenCount("spam", "buy")
	assert.Equal(t, uint64(2000), n)
	n, _ = s.TokenCount("", "buy")
	assert.Equal(t, uint64(2000), n)
}
