// Package server exposes the conference search as an HTTP tool endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/logger"
)

// DefaultLimit is the number of records returned when a request names none.
const DefaultLimit = 10

const (
	shutdownTimeout = 10 * time.Second
	maxRequestBytes = 64 << 10
)

// ErrMissingKeywords is returned to callers that omit the search keywords.
var ErrMissingKeywords = errors.New("keywords are required")

// Searcher runs one conference search.
type Searcher interface {
	Search(ctx context.Context, keywords string, limit int) conference.Result
}

// Server serves the get_events tool, health checks and metrics.
type Server struct {
	searcher Searcher
	gatherer prometheus.Gatherer
	log      *logger.Logger
}

// New creates a Server. A nil gatherer disables the /metrics endpoint.
func New(searcher Searcher, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		searcher: searcher,
		gatherer: gatherer,
		log:      log,
	}
}

// eventsRequest is the JSON body accepted by POST /tools/get_events.
type eventsRequest struct {
	Keywords string `json:"keywords"`
	Limit    *int   `json:"limit,omitempty"`
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools/get_events", s.handleGetEvents)
	mux.HandleFunc("POST /tools/get_events", s.handleGetEvents)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	req, err := decodeEventsRequest(r)
	if err != nil {
		s.log.Warn("rejecting get_events request", logger.Fields{"method": r.Method}, err)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, conference.Failure(err))
		return
	}

	limit := DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	result := s.searcher.Search(r.Context(), req.Keywords, limit)

	status := http.StatusOK
	if !result.OK() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// decodeEventsRequest reads the tool arguments from the query string or,
// for POST, from a JSON body of at most maxRequestBytes.
func decodeEventsRequest(r *http.Request) (eventsRequest, error) {
	var req eventsRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decoding request body: %w", err)
		}
	} else {
		q := r.URL.Query()
		req.Keywords = q.Get("keywords")
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return req, fmt.Errorf("invalid limit %q: %w", raw, err)
			}
			req.Limit = &n
		}
	}

	req.Keywords = strings.TrimSpace(req.Keywords)
	if req.Keywords == "" {
		return req, ErrMissingKeywords
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, stopping http server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
