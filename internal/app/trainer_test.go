package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/bayes/internal/adapters/memory"
	"github.com/corey/bayes/internal/domain/classifier"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func newTestClassifier(t *testing.T) (*classifier.Classifier, *memory.Store) {
	t.Helper()
	store := memory.New()
	clf, err := classifier.New(store)
	require.NoError(t, err)
	return clf, store
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		path  string
		class string
		ok    bool
	}{
		{"/data/spam/a.txt", "spam", true},
		{"/data/spam/nested/a.txt", "spam", true},
		{"/data/a.txt", "", false},
		{"/data/.git/HEAD", "", false},
		{"/elsewhere/spam/a.txt", "", false},
	}
	for _, tt := range tests {
		class, ok := ClassOf("/data", tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.class, class, tt.path)
	}
}

func TestTrainDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "spam", "1.txt"), "casino casino jackpot")
	writeFile(t, filepath.Join(dir, "spam", "2.txt"), "lottery winner")
	writeFile(t, filepath.Join(dir, "ham", "deep", "1.txt"), "meeting agenda")
	writeFile(t, filepath.Join(dir, "loose.txt"), "no class")
	writeFile(t, filepath.Join(dir, "ham", ".swap"), "hidden")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref")

	clf, store := newTestClassifier(t)
	res, err := TrainDir(context.Background(), clf, dir, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 7, res.Tokens)
	assert.Equal(t, map[string]int{"spam": 2, "ham": 1}, res.Classes)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "loose.txt"),
		filepath.Join(dir, "ham", ".swap"),
	}, res.Skipped)

	n, err := store.TokenCount("spam", "casino")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = store.TokenCount("spam", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
	n, err = store.TokenCount("", "meeting")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestTrainDir_MatchesSequentialTraining(t *testing.T) {
	dir := t.TempDir()
	docs := map[string]string{
		filepath.Join(dir, "a", "1.txt"): "one two two three",
		filepath.Join(dir, "a", "2.txt"): "three three four",
		filepath.Join(dir, "b", "1.txt"): "five six one",
	}
	for path, body := range docs {
		writeFile(t, path, body)
	}

	parallel, pStore := newTestClassifier(t)
	_, err := TrainDir(context.Background(), parallel, dir, 0)
	require.NoError(t, err)

	sequential, sStore := newTestClassifier(t)
	for path, body := range docs {
		class, _ := ClassOf(dir, path)
		require.NoError(t, sequential.Train(class, body))
	}

	want, err := sStore.Snapshot()
	require.NoError(t, err)
	got, err := pStore.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTrainDir_Errors(t *testing.T) {
	clf, _ := newTestClassifier(t)
	_, err := TrainDir(context.Background(), clf, filepath.Join(t.TempDir(), "missing"), 1)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	_, err = TrainDir(context.Background(), clf, file, 1)
	require.ErrorContains(t, err, "not a directory")
}

func TestTrainDir_Cancelled(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(dir, "spam", strings.Repeat("x", i+1)+".txt"), "buy")
	}
	clf, _ := newTestClassifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TrainDir(ctx, clf, dir, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregate(t *testing.T) {
	counts, total, err := aggregate([]string{"a", "b", "a", "", "a"})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, map[string]uint32{"a": 3, "b": 1}, counts)
}
