package cmd

import (
	"fmt"

	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/app"
	"github.com/corey/bayes/internal/ports"
)

// model is what every command needs: the daemon when one is running for this
// project, the configured store otherwise.
type model interface {
	socket.AppQueries
	Close() error
}

// openModel prefers the daemon; without one it opens the store directly.
// The bool reports whether the daemon answered.
func openModel() (model, bool, error) {
	root := projectRoot()
	client := socket.NewClient(socket.SocketPath(root))
	if client.Ping() {
		return daemonModel{client}, true, nil
	}
	a, err := openApp(root)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// openApp wires the model in-process, with lock diagnostics for bbolt.
func openApp(root string) (*app.App, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if err := checkDirectBackend(cfg); err != nil {
		return nil, err
	}
	a, err := app.New(app.Options{ProjectRoot: root, Config: &cfg})
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%s", diagnoseDBLock(root))
		}
		return nil, fmt.Errorf("init: %w", err)
	}
	return a, nil
}

// checkDirectBackend refuses a store that would vanish when the command
// exits: a memory model only outlives one command inside the daemon.
func checkDirectBackend(cfg app.Config) error {
	if cfg.Storage.Backend != app.BackendMemory {
		return nil
	}
	return fmt.Errorf("storage.backend is %q and no daemon is running: the model would be lost on exit\n"+
		"  → start the daemon:   bayes daemon start\n"+
		"  → or persist it:      storage.backend = %q", app.BackendMemory, app.BackendBbolt)
}

// loadConfig reads --config, or .bayes/config.toml under root.
func loadConfig(root string) (app.Config, error) {
	path := configPath
	if path == "" {
		path = app.NewPaths(root).Config
	}
	return app.LoadConfig(path)
}

// daemonModel adapts the socket client to model.
type daemonModel struct {
	c *socket.Client
}

func (d daemonModel) Train(class, text string) (socket.TrainResult, error) {
	r, err := d.c.Train(class, text)
	if err != nil {
		return socket.TrainResult{}, err
	}
	return *r, nil
}

func (d daemonModel) Guess(p socket.GuessParams) (socket.GuessResult, error) {
	r, err := d.c.Guess(p)
	if err != nil {
		return socket.GuessResult{}, err
	}
	return *r, nil
}

func (d daemonModel) Count(class, token string) (uint64, error) { return d.c.Count(class, token) }

func (d daemonModel) Probability(class, token string) (float64, error) {
	return d.c.Probability(class, token)
}

func (d daemonModel) Names() ([]string, error)         { return d.c.Names() }
func (d daemonModel) Export() (*ports.Snapshot, error) { return d.c.Export() }
func (d daemonModel) Wipe() error                      { return d.c.Wipe() }
func (d daemonModel) Close() error                     { return nil }

func (d daemonModel) Import(snap *ports.Snapshot) (socket.ImportResult, error) {
	r, err := d.c.Import(snap)
	if err != nil {
		return socket.ImportResult{}, err
	}
	return *r, nil
}

func (d daemonModel) Health() (socket.HealthResult, error) {
	r, err := d.c.Health()
	if err != nil {
		return socket.HealthResult{}, err
	}
	return *r, nil
}

var (
	_ model = daemonModel{}
	_ model = (*app.App)(nil)
)
