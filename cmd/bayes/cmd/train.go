package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var trainFile string

var trainCmd = &cobra.Command{
	Use:   "train <class> [text...]",
	Short: "Train a class from text",
	Long:  "Adds the tokens of text to class. Text comes from the arguments, --file, or stdin.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainFile, "file", "f", "", "Read text from file")
}

func runTrain(cmd *cobra.Command, args []string) error {
	text, err := inputText(args[1:], trainFile)
	if err != nil {
		return err
	}

	m, viaDaemon, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Train(args[0], text)
	if err != nil {
		return err
	}
	fmt.Printf("⚡ trained %s with %d tokens%s\n", classColor.Sprint(res.Class), res.Tokens, source(viaDaemon))
	return nil
}

// inputText joins args, or reads file, or reads stdin when both are empty.
func inputText(args []string, file string) (string, error) {
	if len(args) > 0 && file != "" {
		return "", fmt.Errorf("text arguments and --file are exclusive")
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	var (
		data []byte
		err  error
	)
	if file != "" && file != "-" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
