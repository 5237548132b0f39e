package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/bayes/internal/adapters/socket"
)

var (
	guessFile    string
	guessLimit   int
	guessExplain string
)

var guessCmd = &cobra.Command{
	Use:   "guess [text...]",
	Short: "Rank classes for text",
	Long:  "Ranks every trained class by the probability that text belongs to it. Text comes from the arguments, --file, or stdin.",
	RunE:  runGuess,
}

func init() {
	guessCmd.Flags().StringVarP(&guessFile, "file", "f", "", "Read text from file")
	guessCmd.Flags().IntVarP(&guessLimit, "limit", "n", 0, "Show at most n classes")
	guessCmd.Flags().StringVar(&guessExplain, "explain", "", "Also show per-token probabilities under this class")
}

func runGuess(cmd *cobra.Command, args []string) error {
	text, err := inputText(args, guessFile)
	if err != nil {
		return err
	}

	m, _, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	res, err := m.Guess(socket.GuessParams{Text: text, Limit: guessLimit, Explain: guessExplain})
	if err != nil {
		return err
	}
	fmt.Print(formatGuess(res, guessExplain))
	return nil
}
