package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	countClass string
	countToken string
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show a token count",
	Long: "--class and --token: occurrences of token in class.\n" +
		"--class only: total tokens in class.\n" +
		"--token only: occurrences of token across all classes.",
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringVarP(&countClass, "class", "c", "", "Class name")
	countCmd.Flags().StringVarP(&countToken, "token", "t", "", "Token")
}

func runCount(cmd *cobra.Command, args []string) error {
	if countClass == "" && countToken == "" {
		return fmt.Errorf("need --class, --token, or both")
	}

	m, _, err := openModel()
	if err != nil {
		return err
	}
	defer m.Close()

	n, err := m.Count(countClass, countToken)
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}
