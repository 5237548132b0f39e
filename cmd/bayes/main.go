// bayes is a supervised naive-Bayes text classifier.
// Train classes from text, guess the class of new text, keep the model on
// disk (bbolt) or in redis, and optionally serve it from a daemon.
package main

import (
	"os"

	"github.com/corey/bayes/cmd/bayes/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
