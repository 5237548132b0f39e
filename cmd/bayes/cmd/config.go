package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show project paths and effective configuration",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	cfgFile := paths.Config
	if configPath != "" {
		cfgFile = configPath
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		cfgFile += grayColor.Sprint(" (missing, using defaults)")
	}

	fmt.Println(boldColor.Sprint("⚡ bayes config"))
	fmt.Printf("  Project:  %s\n", root)
	fmt.Printf("  Config:   %s\n", cfgFile)
	if cfg.Storage.Backend == app.BackendBbolt {
		fmt.Printf("  Database: %s\n", paths.Resolve(cfg.Storage.Path))
	}
	fmt.Printf("  Socket:   %s\n", socket.SocketPath(root))
	fmt.Printf("  Log:      %s\n", paths.DaemonLog)
	fmt.Println()
	return cfg.Encode(os.Stdout)
}
