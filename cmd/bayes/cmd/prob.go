package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probCmd = &cobra.Command{
	Use:   "prob <class> <token>",
	Short: "Show the probability that token indicates class",
	Long:  "Prints a value in [0.0001, 0.9999], or 0 when class is untrained.",
	Args:  cobra.ExactArgs(2),
	RunE:  runProb,
}

func runProb(cmd *cobra.Command, args []string) error {
	m, _, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	p, err := m.Probability(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("%.4f\n", p)
	return nil
}
