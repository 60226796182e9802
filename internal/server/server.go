// Package server exposes the reconciliation report over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"wgledger/internal/api"
	"wgledger/internal/model"
	"wgledger/internal/report"
	"wgledger/internal/source"
)

// Server answers report queries. Every request fetches fresh peer records
// from the source; nothing about allocation is cached between requests.
type Server struct {
	listen  string
	src     source.Source
	builder *report.Builder

	mu        sync.Mutex
	lastFetch time.Time
	lastPeers int
	lastErr   string
}

// New constructs a server.
func New(listen string, src source.Source, b *report.Builder) *Server {
	return &Server{listen: listen, src: src, builder: b}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("GET /next", s.handleNext)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.S().Infof("wgledger listening on %s (source %s)", s.listen, s.src.Name())
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	status := r.URL.Query().Get("status")
	if !report.ValidStatus(status) {
		writeJSONError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}

	raws, ok := s.fetch(w, r)
	if !ok {
		return
	}
	rep := s.builder.Build(raws)
	rep.Rows = report.Filter(rep.Rows, query, status)
	writeJSON(w, http.StatusOK, api.ReportResponse{Report: rep, Query: query, Status: status})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	raws, ok := s.fetch(w, r)
	if !ok {
		return
	}
	resp := api.NextResponse{Suggestion: s.builder.Suggest(raws)}
	if row, found := s.builder.Build(raws).Next(); found {
		resp.Row = &row
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fetched := s.lastFetch
	resp := api.HealthResponse{
		Status:    "ok",
		Source:    s.src.Name(),
		Peers:     s.lastPeers,
		LastError: s.lastErr,
	}
	s.mu.Unlock()
	if !fetched.IsZero() {
		resp.LastFetch = &fetched
	}
	if resp.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) ([]model.RawPeer, bool) {
	raws, err := s.src.Fetch(r.Context())

	s.mu.Lock()
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
		s.lastFetch = time.Now().UTC()
		s.lastPeers = len(raws)
	}
	s.mu.Unlock()

	if err != nil {
		zap.S().Warnf("fetch from %s failed: %s", s.src.Name(), err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return raws, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
