package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/app"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the bayes daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)

	// Check if already running
	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	logger, logFile, err := app.NewFileLogger(paths.DaemonLog, cfg.Daemon.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	a, err := app.New(app.Options{ProjectRoot: root, Config: &cfg, Logger: logger})
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(root))
		}
		return fmt.Errorf("init: %w", err)
	}

	if err := a.Start(); err != nil {
		a.Close()
		return err
	}

	fmt.Printf("⚡ bayes daemon started at %s\n", sockPath)
	if a.WebServer != nil {
		fmt.Printf("  http api: %s\n", a.WebServer.URL())
	}
	fmt.Printf("  %s\n", grayColor.Sprintf("log: %s", paths.DaemonLog))
	if a.Watcher == nil && cfg.Daemon.WatchDir != "" {
		fmt.Fprintf(os.Stderr, "%s training watcher not running, see the log\n", warnColor.Sprint("⚠"))
	}

	// Wait for a signal or a shutdown request over the socket.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))

	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
