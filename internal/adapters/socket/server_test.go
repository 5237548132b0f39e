package socket

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/bayes/internal/adapters/memory"
	"github.com/corey/bayes/internal/domain/classifier"
	"github.com/corey/bayes/internal/ports"
)

// fakeQueries serves a classifier on a memory store, the way the app does.
type fakeQueries struct {
	store *memory.Store
	clf   *classifier.Classifier
}

func newFakeQueries(t *testing.T) *fakeQueries {
	t.Helper()
	store := memory.New()
	clf, err := classifier.New(store)
	require.NoError(t, err)
	return &fakeQueries{store: store, clf: clf}
}

func (q *fakeQueries) Train(class, text string) (TrainResult, error) {
	if err := q.clf.Train(class, text); err != nil {
		return TrainResult{}, err
	}
	return TrainResult{Class: class, Tokens: len(q.clf.Tokenize(text))}, nil
}

func (q *fakeQueries) Guess(p GuessParams) (GuessResult, error) {
	guesses, err := q.clf.Guess(p.Text)
	if err != nil {
		return GuessResult{}, err
	}
	out := GuessResult{Guesses: []GuessEntry{}}
	for _, g := range guesses {
		out.Guesses = append(out.Guesses, GuessEntry{Name: g.Name(), Probability: g.Probability()})
	}
	out.Count = len(out.Guesses)
	return out, nil
}

func (q *fakeQueries) Count(class, token string) (uint64, error) {
	return q.store.TokenCount(class, token)
}

func (q *fakeQueries) Probability(class, token string) (float64, error) {
	return q.store.TokenProbability(class, token)
}

func (q *fakeQueries) Names() ([]string, error)         { return q.store.Names() }
func (q *fakeQueries) Export() (*ports.Snapshot, error) { return q.store.Snapshot() }

func (q *fakeQueries) Import(snap *ports.Snapshot) (ImportResult, error) {
	if err := q.store.Restore(snap); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Classes: len(snap.Names)}, nil
}

func (q *fakeQueries) Wipe() error {
	return q.store.Restore(ports.NewSnapshot())
}

func (q *fakeQueries) Health() (HealthResult, error) {
	names, err := q.store.Names()
	if err != nil {
		return HealthResult{}, err
	}
	n, _ := q.store.Snapshot()
	return HealthResult{Status: "ok", Backend: "memory", Classes: len(names), CorpusTokens: n.Corpus.Count}, nil
}

// testSocketPath returns a unique socket path for a test.
func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sock")
}

func startServer(t *testing.T) (*Server, *Client, *fakeQueries) {
	t.Helper()
	q := newFakeQueries(t)
	sockPath := testSocketPath(t)
	srv := NewServer(q, sockPath, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })
	return srv, NewClient(sockPath), q
}

func TestServer_TrainGuessRoundtrip(t *testing.T) {
	_, client, _ := startServer(t)

	for i := 0; i < 3; i++ {
		_, err := client.Train("spam", "viagra lottery winner prize casino")
		require.NoError(t, err)
		_, err = client.Train("ham", "meeting agenda minutes project report")
		require.NoError(t, err)
	}

	res, err := client.Train("spam", "jackpot jackpot")
	require.NoError(t, err)
	assert.Equal(t, "spam", res.Class)
	assert.Equal(t, 2, res.Tokens)

	guess, err := client.Guess(GuessParams{Text: "casino prize"})
	require.NoError(t, err)
	require.Equal(t, 2, guess.Count)
	assert.Equal(t, "spam", guess.Guesses[0].Name)
	assert.Greater(t, guess.Guesses[0].Probability, guess.Guesses[1].Probability)
}

func TestServer_CountProbabilityNames(t *testing.T) {
	_, client, q := startServer(t)
	require.NoError(t, q.store.AddTokenCount("english", "turbo", 2))
	require.NoError(t, q.store.AddToken("german", "bremsen"))

	n, err := client.Count("english", "turbo")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = client.Count("", "turbo")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = client.Count("english", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	_, err = client.Count("", "")
	require.ErrorContains(t, err, "invalid argument")

	p, err := client.Probability("english", "turbo")
	require.NoError(t, err)
	want, _ := q.store.TokenProbability("english", "turbo")
	assert.Equal(t, want, p)

	p, err = client.Probability("nobody", "turbo")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	names, err := client.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"english", "german"}, names)
}

func TestServer_ExportImport(t *testing.T) {
	_, client, q := startServer(t)
	require.NoError(t, q.store.AddTokenCount("spam", "buy", 3))

	snap, err := client.Export()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Names["spam"].Tokens["buy"])

	require.NoError(t, client.Wipe())
	names, err := client.Names()
	require.NoError(t, err)
	assert.Empty(t, names)

	res, err := client.Import(snap)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Classes)
	n, err := client.Count("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	// Invalid documents are rejected and leave the model alone.
	bad := ports.NewSnapshot()
	bad.Names["x"] = &ports.TableSnapshot{Tokens: map[string]uint64{"a": 1}, Count: 9}
	_, err = client.Import(bad)
	require.ErrorIs(t, err, ports.ErrInvalidArgument)
	n, err = client.Count("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	// So is a document without a names table.
	_, err = client.Import(&ports.Snapshot{})
	require.ErrorIs(t, err, ports.ErrInvalidArgument)
	n, err = client.Count("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestServer_LargeCountsSurviveTransport(t *testing.T) {
	_, client, _ := startServer(t)
	const big = uint64(1)<<60 + 1

	snap := ports.NewSnapshot()
	snap.Names["spam"] = &ports.TableSnapshot{Tokens: map[string]uint64{"buy": big}, Count: big}
	_, err := client.Import(snap)
	require.NoError(t, err)

	n, err := client.Count("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, big, n)
}

func TestServer_Health(t *testing.T) {
	_, client, q := startServer(t)
	require.NoError(t, q.store.AddTokenCount("spam", "buy", 4))

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Classes)
	assert.Equal(t, uint64(4), health.CorpusTokens)
	assert.NotEmpty(t, health.Uptime)
}

type failingQueries struct{ *fakeQueries }

func (failingQueries) Health() (HealthResult, error) { return HealthResult{}, errors.New("disk on fire") }

func TestServer_ErrorsReachClient(t *testing.T) {
	sockPath := testSocketPath(t)
	srv := NewServer(failingQueries{newFakeQueries(t)}, sockPath, nil)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	_, err := NewClient(sockPath).Health()
	require.ErrorContains(t, err, "disk on fire")
	assert.NotErrorIs(t, err, ports.ErrInvalidArgument)

	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Empty(t, serr.Code)
}

func TestServer_InvalidArgumentSurvivesTransport(t *testing.T) {
	_, client, _ := startServer(t)

	_, err := client.Train("", "casino")
	require.ErrorIs(t, err, ports.ErrInvalidArgument)
	_, err = client.Count("", "")
	require.ErrorIs(t, err, ports.ErrInvalidArgument)

	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, CodeInvalidArgument, serr.Code)
}

func TestServer_UnknownMethod(t *testing.T) {
	_, client, _ := startServer(t)
	err := client.call("dance", nil, nil)
	require.ErrorContains(t, err, "unknown method: dance")
}

func TestServer_InvalidParams(t *testing.T) {
	_, client, _ := startServer(t)
	err := client.call(MethodTrain, []int{1, 2}, nil)
	require.ErrorContains(t, err, "train params")
	assert.ErrorIs(t, err, ports.ErrInvalidArgument)
}

func TestServer_Shutdown(t *testing.T) {
	srv, client, _ := startServer(t)

	assert.True(t, client.Ping())
	require.NoError(t, client.Shutdown())

	select {
	case <-srv.ShutdownCh():
	default:
		t.Fatal("ShutdownCh should be closed after Shutdown request")
	}

	// The daemon is responsible for calling Stop() after receiving the signal.
	srv.Stop()
	_, err := os.Stat(srv.Addr())
	assert.True(t, os.IsNotExist(err), "socket file should be removed after shutdown")
}

func TestServer_ConcurrentClients(t *testing.T) {
	srv, _, _ := startServer(t)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	// 10 clients x 10 trainings each
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := NewClient(srv.Addr())
			for j := 0; j < 10; j++ {
				if _, err := client.Train("spam", "buy"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent client error: %v", err)
	}

	n, err := NewClient(srv.Addr()).Count("spam", "buy")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
}

func TestServer_StaleSocket(t *testing.T) {
	sockPath := testSocketPath(t)
	require.NoError(t, os.WriteFile(sockPath, []byte("stale"), 0600))

	srv := NewServer(newFakeQueries(t), sockPath, nil)
	require.NoError(t, srv.Start(), "should replace stale socket")
	defer srv.Stop()

	health, err := NewClient(sockPath).Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestServer_AlreadyRunning(t *testing.T) {
	srv, _, _ := startServer(t)
	second := NewServer(newFakeQueries(t), srv.Addr(), nil)
	require.ErrorContains(t, second.Start(), "already running")
}

func TestSocketPath_Stable(t *testing.T) {
	a := SocketPath("/some/project")
	assert.Equal(t, a, SocketPath("/some/project"))
	assert.NotEqual(t, a, SocketPath("/other/project"))
	assert.Regexp(t, `^/tmp/bayes-[0-9a-f]{12}\.sock$`, a)
}
