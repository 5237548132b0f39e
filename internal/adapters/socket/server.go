package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/bayes/internal/ports"
)

// AppQueries is the model surface the server exposes. Thread safety is the
// implementor's responsibility.
type AppQueries interface {
	Train(class, text string) (TrainResult, error)
	Guess(params GuessParams) (GuessResult, error)
	Count(class, token string) (uint64, error)
	Probability(class, token string) (float64, error)
	Names() ([]string, error)
	Export() (*ports.Snapshot, error)
	Import(snap *ports.Snapshot) (ImportResult, error)
	Wipe() error
	Health() (HealthResult, error)
}

// Server is the daemon that listens on a Unix socket and serves model requests.
type Server struct {
	queries  AppQueries
	logger   *slog.Logger
	listener net.Listener
	sockPath string
	started  time.Time

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server. A nil logger discards request logs.
func NewServer(queries AppQueries, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		queries:    queries,
		logger:     logger,
		sockPath:   sockPath,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for open connections and removes the
// socket file. Idempotent (remote shutdown followed by a signal is normal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.done:
			conn.SetReadDeadline(time.Now())
		case <-closed:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rawRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		start := time.Now()
		resp := s.handleRequest(req)
		s.logger.Debug("request", "method", req.Method, "id", req.ID,
			"elapsed", time.Since(start), "error", resp.Error)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

// rawRequest keeps params undecoded until the method is known, so counts
// above 2^53 survive the trip.
type rawRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (s *Server) handleRequest(req rawRequest) Response {
	var (
		v   interface{}
		err error
	)
	switch req.Method {
	case MethodTrain:
		var p TrainParams
		if err = req.decode(&p); err == nil {
			v, err = s.queries.Train(p.Class, p.Text)
		}
	case MethodGuess:
		var p GuessParams
		if err = req.decode(&p); err == nil {
			v, err = s.queries.Guess(p)
		}
	case MethodCount:
		var p CountParams
		if err = req.decode(&p); err == nil {
			var n uint64
			n, err = s.queries.Count(p.Class, p.Token)
			v = CountResult{Count: n}
		}
	case MethodProbability:
		var p ProbabilityParams
		if err = req.decode(&p); err == nil {
			var prob float64
			prob, err = s.queries.Probability(p.Class, p.Token)
			v = ProbabilityResult{Probability: prob}
		}
	case MethodNames:
		var names []string
		names, err = s.queries.Names()
		v = NamesResult{Names: names, Count: len(names)}
	case MethodExport:
		v, err = s.queries.Export()
	case MethodImport:
		var p ImportParams
		if err = req.decode(&p); err == nil {
			if p.Snapshot == nil || p.Snapshot.Names == nil {
				err = fmt.Errorf("%w: import needs a snapshot with a names table", ports.ErrInvalidArgument)
			} else {
				v, err = s.queries.Import(p.Snapshot)
			}
		}
	case MethodWipe:
		v, err = struct{}{}, s.queries.Wipe()
	case MethodHealth:
		var h HealthResult
		h, err = s.queries.Health()
		h.Uptime = time.Since(s.started).Truncate(time.Second).String()
		v = h
	case MethodShutdown:
		v = struct{}{}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
	if err != nil {
		return errorResponse(req.ID, err)
	}
	return Response{ID: req.ID, Result: v}
}

func errorResponse(id string, err error) Response {
	resp := Response{ID: id, Error: err.Error()}
	if errors.Is(err, ports.ErrInvalidArgument) {
		resp.Code = CodeInvalidArgument
	}
	return resp
}

func (r rawRequest) decode(dst interface{}) error {
	if len(r.Params) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Params, dst); err != nil {
		return fmt.Errorf("%w: %s params: %v", ports.ErrInvalidArgument, r.Method, err)
	}
	return nil
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "id", resp.ID, "err", err)
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
