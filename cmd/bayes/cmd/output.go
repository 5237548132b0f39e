package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/corey/bayes/internal/adapters/socket"
)

var (
	boldColor  = color.New(color.Bold)
	classColor = color.New(color.FgCyan)
	tokenColor = color.New(color.FgMagenta)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	grayColor  = color.New(color.FgHiBlack)
	errColor   = color.New(color.FgRed, color.Bold)
)

// printError writes err to stderr. Multi-line guidance (lock diagnostics)
// keeps its own layout.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errColor.Sprint("error:"), err)
}

// source names where an answer came from.
func source(viaDaemon bool) string {
	if viaDaemon {
		return grayColor.Sprint(" (daemon)")
	}
	return ""
}

// formatGuess formats a GuessResult for terminal display.
//
//	⚡ 2 classes
//	  spam   0.9731
//	  ham    0.0268
func formatGuess(r socket.GuessResult, explain string) string {
	var sb strings.Builder
	if r.Count == 0 {
		sb.WriteString(boldColor.Sprint("⚡ no guess") + grayColor.Sprint(" │ no known class matched a token") + "\n")
		return sb.String()
	}
	sb.WriteString(boldColor.Sprintf("⚡ %d classes", r.Count) + "\n")
	width := 0
	for _, g := range r.Guesses {
		width = max(width, len(g.Name))
	}
	for _, g := range r.Guesses {
		sb.WriteString(fmt.Sprintf("  %s  %.4f\n", classColor.Sprintf("%-*s", width, g.Name), g.Probability))
	}
	if explain != "" {
		sb.WriteString(boldColor.Sprintf("⚡ tokens under %s", explain) + "\n")
		for _, t := range r.Tokens {
			p := fmt.Sprintf("%.4f", t.Probability)
			if t.Probability == 0 {
				p = grayColor.Sprint("unseen")
			}
			sb.WriteString(fmt.Sprintf("  %s  %s\n", tokenColor.Sprint(t.Name), p))
		}
	}
	return sb.String()
}

// formatNames formats the class list.
func formatNames(names []string) string {
	var sb strings.Builder
	sb.WriteString(boldColor.Sprintf("⚡ %d classes", len(names)) + "\n")
	for _, n := range names {
		sb.WriteString("  " + classColor.Sprint(n) + "\n")
	}
	return sb.String()
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(boldColor.Sprint("⚡ bayes daemon") + "\n")
	sb.WriteString(fmt.Sprintf("  Status:     %s\n", okColor.Sprint(h.Status)))
	sb.WriteString(fmt.Sprintf("  Backend:    %s\n", h.Backend))
	sb.WriteString(fmt.Sprintf("  Tokenizer:  %s\n", h.Tokenizer))
	sb.WriteString(fmt.Sprintf("  Classes:    %d\n", h.Classes))
	sb.WriteString(fmt.Sprintf("  Tokens:     %d\n", h.CorpusTokens))
	if h.WatchDir != "" {
		sb.WriteString(fmt.Sprintf("  Watching:   %s\n", h.WatchDir))
	}
	if h.Uptime != "" {
		sb.WriteString(fmt.Sprintf("  Uptime:     %s\n", h.Uptime))
	}
	return sb.String()
}
