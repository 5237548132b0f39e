// Package web serves the model as a JSON API over HTTP.
// Binds to localhost by default; there is no auth.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/corey/bayes/internal/adapters/socket"
	"github.com/corey/bayes/internal/ports"
)

// maxBody bounds a train or guess request body.
const maxBody = 8 * 1024 * 1024

// Server serves the JSON API over HTTP. It answers the same queries as the
// Unix socket server.
type Server struct {
	queries  socket.AppQueries
	logger   *slog.Logger
	listener net.Listener
	httpSrv  *http.Server
	started  time.Time
	stopOnce sync.Once
}

// NewServer creates an HTTP server on top of queries. A nil logger discards.
func NewServer(queries socket.AppQueries, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{queries: queries, logger: logger}
}

// Start begins listening on addr ("127.0.0.1:0" picks a free port).
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.started = time.Now()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http serve", "err", err)
		}
	}()
	return nil
}

// Handler returns the API routes. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/names", s.handleNames)
	mux.HandleFunc("GET /api/count", s.handleCount)
	mux.HandleFunc("GET /api/probability", s.handleProbability)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/train", s.handleTrain)
	mux.HandleFunc("POST /api/guess", s.handleGuess)
	return mux
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpSrv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpSrv.Shutdown(ctx)
	})
	return err
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.queries.Health()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.started.IsZero() {
		h.Uptime = time.Since(s.started).Truncate(time.Second).String()
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.queries.Names()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, socket.NamesResult{Names: names, Count: len(names)})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := s.queries.Count(q.Get("class"), q.Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, socket.CountResult{Count: n})
}

func (s *Server) handleProbability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := s.queries.Probability(q.Get("class"), q.Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, socket.ProbabilityResult{Probability: p})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.queries.Export()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var p socket.TrainParams
	if !s.decode(w, r, &p) {
		return
	}
	res, err := s.queries.Train(p.Class, p.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var p socket.GuessParams
	if !s.decode(w, r, &p) {
		return
	}
	res, err := s.queries.Guess(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.Guesses == nil {
		res.Guesses = []socket.GuessEntry{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps invalid arguments to 400 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ports.ErrInvalidArgument) {
		status = http.StatusBadRequest
	} else {
		s.logger.Error("http request", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
