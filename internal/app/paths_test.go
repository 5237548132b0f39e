package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, filepath.Join("/project", ".bayes"), p.Root)
	assert.Equal(t, filepath.Join("/project", ".bayes", "bayes.db"), p.DB)
	assert.Equal(t, filepath.Join("/project", ".bayes", "config.toml"), p.Config)
	assert.Equal(t, filepath.Join("/project", ".bayes", "log"), p.LogDir)
	assert.Equal(t, filepath.Join("/project", ".bayes", "log", "daemon.log"), p.DaemonLog)
	assert.Equal(t, filepath.Join("/project", ".bayes", "run"), p.RunDir)
	assert.Equal(t, filepath.Join("/project", ".bayes", "run", "daemon.pid"), p.PIDFile)
}

func TestEnsureDirs(t *testing.T) {
	p := NewPaths(t.TempDir())

	// First call creates directories.
	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}

	// Second call is idempotent.
	require.NoError(t, p.EnsureDirs())
}

func TestResolve(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, filepath.Join("/project", "data", "x.db"), p.Resolve(filepath.Join("data", "x.db")))
	assert.Equal(t, "/abs/x.db", p.Resolve("/abs/x.db"))
	assert.Equal(t, "", p.Resolve(""))
}

func TestCleanEphemeral(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())
	require.NoError(t, os.WriteFile(p.PIDFile, []byte("123"), 0644))

	p.CleanEphemeral()
	_, err := os.Stat(p.PIDFile)
	assert.True(t, os.IsNotExist(err))
}
