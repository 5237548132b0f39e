package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/corey/bayes/internal/ports"
)

// Client connects to the bayes daemon over a Unix socket.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, timeout: 5 * time.Second}
}

// Train sends text to be trained into class.
func (c *Client) Train(class, text string) (*TrainResult, error) {
	var result TrainResult
	err := c.call(MethodTrain, TrainParams{Class: class, Text: text}, &result)
	return &result, err
}

// Guess ranks the classes for text.
func (c *Client) Guess(params GuessParams) (*GuessResult, error) {
	var result GuessResult
	err := c.call(MethodGuess, params, &result)
	return &result, err
}

// Count reads a class token count, class total or corpus count.
func (c *Client) Count(class, token string) (uint64, error) {
	var result CountResult
	err := c.call(MethodCount, CountParams{Class: class, Token: token}, &result)
	return result.Count, err
}

// Probability reads the class-membership probability of token.
func (c *Client) Probability(class, token string) (float64, error) {
	var result ProbabilityResult
	err := c.call(MethodProbability, ProbabilityParams{Class: class, Token: token}, &result)
	return result.Probability, err
}

// Names lists the trained classes.
func (c *Client) Names() ([]string, error) {
	var result NamesResult
	err := c.call(MethodNames, nil, &result)
	return result.Names, err
}

// Export fetches the daemon's full model.
func (c *Client) Export() (*ports.Snapshot, error) {
	var snap ports.Snapshot
	if err := c.callWithTimeout(MethodExport, nil, &snap, 60*time.Second); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Import replaces the daemon's model with snap.
func (c *Client) Import(snap *ports.Snapshot) (*ImportResult, error) {
	var result ImportResult
	err := c.callWithTimeout(MethodImport, ImportParams{Snapshot: snap}, &result, 60*time.Second)
	return &result, err
}

// Wipe deletes every class and the corpus.
func (c *Client) Wipe() error {
	return c.call(MethodWipe, nil, nil)
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.call(MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	return c.call(MethodShutdown, nil, nil)
}

// Ping returns true if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// rawResponse keeps the result undecoded until the caller's type is known.
type rawResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

func (c *Client) call(method string, params, result interface{}) error {
	return c.callWithTimeout(method, params, result, c.timeout)
}

func (c *Client) callWithTimeout(method string, params, result interface{}, timeout time.Duration) error {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(Request{ID: "1", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return fmt.Errorf("empty response")
	}

	var resp rawResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return &ServerError{Code: resp.Code, Message: resp.Error}
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}
