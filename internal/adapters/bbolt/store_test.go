package bbolt

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/corey/bayes/internal/ports"
	"github.com/corey/bayes/internal/ports/storetest"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(path, "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.TokenStore {
		s, _ := newTestStore(t)
		return s
	})
}

func TestStore_NamesSorted(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.AddToken(name, "x"))
	}
	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestStore_EmptyNamesNotNil(t *testing.T) {
	s, _ := newTestStore(t)
	names, err := s.Names()
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := NewStore(path, "ns")
	require.NoError(t, err)
	storetest.Fill(t, s)
	before, err := s.TokenProbability("english", "the")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path, "ns")
	require.NoError(t, err)
	defer s.Close()

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"english", "german"}, names)
	n, err := s.TokenCount("english", "the")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
	after, err := s.TokenProbability("english", "the")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_NamespacesIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := NewStore(path, "a")
	require.NoError(t, err)
	require.NoError(t, a.AddToken("spam", "buy"))
	require.NoError(t, a.Close())

	b, err := NewStore(path, "b")
	require.NoError(t, err)
	defer b.Close()
	names, err := b.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
	n, err := b.TokenCount("", "buy")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_DefaultNamespace(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "d.db"), "")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, DefaultNamespace, s.Namespace())
}

func TestStore_DeleteNamespace(t *testing.T) {
	s, _ := newTestStore(t)
	storetest.Fill(t, s)

	require.NoError(t, s.DeleteNamespace())
	names, err := s.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
	n, err := s.TokenCount("", "the")
	require.NoError(t, err)
	assert.Zero(t, n)

	// Idempotent
	require.NoError(t, s.DeleteNamespace())

	// Store stays usable afterwards.
	require.NoError(t, s.AddToken("spam", "buy"))
	n, err = s.TokenCount("spam", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestStore_RestoreReplacesState(t *testing.T) {
	s, _ := newTestStore(t)
	storetest.Fill(t, s)

	snap := ports.NewSnapshot()
	snap.Names["ham"] = &ports.TableSnapshot{Tokens: map[string]uint64{"hello": 2}, Count: 2}
	snap.Corpus = nil
	require.NoError(t, s.Restore(snap))

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"ham"}, names)
	n, err := s.TokenCount("", "hello")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = s.TokenCount("", "the")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_CorruptCountSurfaces(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddToken("spam", "buy"))

	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.ns).Bucket(bucketCorpus).Put([]byte("buy"), []byte{1, 2, 3})
	}))

	_, err := s.TokenCount("", "buy")
	require.ErrorContains(t, err, "corrupt count")
	_, err = s.Snapshot()
	require.Error(t, err)
	require.Error(t, s.AddToken("spam", "buy"))
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s, _ := newTestStore(t)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, s.AddToken("spam", "buy"))
			}
		}()
	}
	wg.Wait()

	n, err := s.TokenCount("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), n)
	n, err = s.TokenCount("", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), n)
}

func TestStore_LockedDatabase(t *testing.T) {
	_, path := newTestStore(t)
	_, err := NewStore(path, "other")
	require.Error(t, err, "second open of a locked database must time out")
}

func TestDecodeCount(t *testing.T) {
	n, err := decodeCount(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = decodeCount(encodeCount(1 << 40))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), n)

	_, err = decodeCount([]byte{0})
	require.Error(t, err)
}
