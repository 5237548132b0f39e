package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "List trained classes",
	RunE:  runNames,
}

func runNames(cmd *cobra.Command, args []string) error {
	m, _, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	names, err := m.Names()
	if err != nil {
		return err
	}
	fmt.Print(formatNames(names))
	return nil
}
