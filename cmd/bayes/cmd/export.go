package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/codec"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the model to a snapshot file",
	Long: "Writes every class and the corpus to file. The format follows the\n" +
		"extension (.json, .msgpack, .mp), then --format, then snapshot.format.",
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json or msgpack")
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := snapshotCodec(args[0], exportFormat)
	if err != nil {
		return err
	}

	m, viaDaemon, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	snap, err := m.Export()
	if err != nil {
		return err
	}
	if err := codec.SaveFile(c, args[0], snap); err != nil {
		return err
	}
	fmt.Printf("⚡ exported %d classes, %d tokens to %s (%s)%s\n",
		len(snap.Names), snap.Corpus.Count, args[0], c.Name(), source(viaDaemon))
	return nil
}

// snapshotCodec picks the codec for path: extension, then flag, then config.
func snapshotCodec(path, flag string) (codec.Codec, error) {
	name := flag
	if name == "" {
		cfg, err := loadConfig(projectRoot())
		if err != nil {
			return nil, err
		}
		name = cfg.Snapshot.Format
	}
	fallback, err := codec.ByName(name)
	if err != nil {
		return nil, err
	}
	return codec.ForPath(path, fallback), nil
}
