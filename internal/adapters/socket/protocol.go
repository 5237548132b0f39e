// Package socket implements a JSON-over-Unix-socket protocol for the bayes daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"github.com/corey/bayes/internal/ports"
)

// maxMessage bounds one request or response line. Exports of large models
// travel as a single line.
const maxMessage = 64 * 1024 * 1024

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/bayes-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/bayes-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodTrain       = "train"
	MethodGuess       = "guess"
	MethodCount       = "count"
	MethodProbability = "probability"
	MethodNames       = "names"
	MethodExport      = "export"
	MethodImport      = "import"
	MethodWipe        = "wipe"
	MethodHealth      = "health"
	MethodShutdown    = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// CodeInvalidArgument marks an error caused by the request itself. The client
// maps it back to ports.ErrInvalidArgument.
const CodeInvalidArgument = "invalid_argument"

// ServerError is an error reported by the daemon.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string { return "server error: " + e.Message }

// Unwrap lets errors.Is see ports.ErrInvalidArgument through the socket.
func (e *ServerError) Unwrap() error {
	if e.Code == CodeInvalidArgument {
		return ports.ErrInvalidArgument
	}
	return nil
}

// TrainParams is the params for a train request.
type TrainParams struct {
	Class string `json:"class"`
	Text  string `json:"text"`
}

// TrainResult is the result of a train request.
type TrainResult struct {
	Class  string `json:"class"`
	Tokens int    `json:"tokens"`
}

// GuessParams is the params for a guess request. Limit <= 0 returns every class.
type GuessParams struct {
	Text    string `json:"text"`
	Limit   int    `json:"limit,omitempty"`
	Explain string `json:"explain,omitempty"` // class whose per-token scores to include
}

// GuessResult is the result of a guess request.
type GuessResult struct {
	Guesses []GuessEntry `json:"guesses"`
	Count   int          `json:"count"`
	Tokens  []GuessEntry `json:"tokens,omitempty"` // per-token scores for Explain
}

// GuessEntry is one ranked label (class or token) on the wire.
type GuessEntry struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// CountParams is the params for a count request. Either field may be empty,
// not both.
type CountParams struct {
	Class string `json:"class,omitempty"`
	Token string `json:"token,omitempty"`
}

// CountResult is the result of a count request.
type CountResult struct {
	Count uint64 `json:"count"`
}

// ProbabilityParams is the params for a probability request.
type ProbabilityParams struct {
	Class string `json:"class"`
	Token string `json:"token"`
}

// ProbabilityResult is the result of a probability request.
type ProbabilityResult struct {
	Probability float64 `json:"probability"`
}

// NamesResult is the result of a names request.
type NamesResult struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// ImportParams is the params for an import request.
type ImportParams struct {
	Snapshot *ports.Snapshot `json:"snapshot"`
}

// ImportResult is the result of an import request.
type ImportResult struct {
	Classes int `json:"classes"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	Tokenizer    string `json:"tokenizer"`
	Classes      int    `json:"classes"`
	CorpusTokens uint64 `json:"corpus_tokens"`
	WatchDir     string `json:"watch_dir,omitempty"`
	Uptime       string `json:"uptime"`
}
