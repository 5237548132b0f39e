package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/codec"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the model with a snapshot file",
	Long: "Validates file and replaces every class and the corpus with its contents.\n" +
		"A document that fails to decode or validate leaves the model untouched.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "", "json or msgpack")
}

func runImport(cmd *cobra.Command, args []string) error {
	c, err := snapshotCodec(args[0], importFormat)
	if err != nil {
		return err
	}
	snap, err := codec.LoadFile(c, args[0])
	if err != nil {
		return err
	}

	m, viaDaemon, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Import(snap)
	if err != nil {
		return err
	}
	fmt.Printf("⚡ imported %d classes from %s%s\n", res.Classes, args[0], source(viaDaemon))
	return nil
}
