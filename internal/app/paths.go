package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .bayes/ project directory.
// All fields are pre-computed strings.
type Paths struct {
	ProjectRoot string

	Root   string // .bayes/
	DB     string // .bayes/bayes.db
	Config string // .bayes/config.toml

	LogDir    string // .bayes/log/
	DaemonLog string // .bayes/log/daemon.log

	RunDir  string // .bayes/run/
	PIDFile string // .bayes/run/daemon.pid
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".bayes")
	return &Paths{
		ProjectRoot: projectRoot,

		Root:   root,
		DB:     filepath.Join(root, "bayes.db"),
		Config: filepath.Join(root, "config.toml"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:  filepath.Join(root, "run"),
		PIDFile: filepath.Join(root, "run", "daemon.pid"),
	}
}

// EnsureDirs creates all subdirectories under .bayes/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Resolve makes a config-relative path absolute against the project root.
func (p *Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ProjectRoot, path)
}

// CleanEphemeral removes runtime files. Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
}
