package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every class and the corpus",
	Long:  "Deletes the model in the configured namespace. Works with or without daemon.",
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip confirmation prompt")
}

func runWipe(cmd *cobra.Command, args []string) error {
	root := projectRoot()

	if !wipeForce {
		fmt.Printf("%s This will delete the bayes model for %s. Continue? [y/N] ",
			warnColor.Sprint("⚠"), filepath.Base(root))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	m, viaDaemon, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Wipe(); err != nil {
		return err
	}
	fmt.Printf("⚡ model wiped%s\n", source(viaDaemon))
	return nil
}
