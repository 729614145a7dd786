// Package api exposes the session control surface to the presentation
// layer as a small JSON-over-HTTP server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pageglot/pageglot/internal/cache"
	"github.com/pageglot/pageglot/internal/session"
)

// Summarizer is the summarize capability of the remote client.
type Summarizer interface {
	Summarize(ctx context.Context, content, targetLang, pageURL string) cache.Summary
}

type Server struct {
	manager    *session.Manager
	summarizer Summarizer

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithSummarizer enables the page-summary endpoint.
func WithSummarizer(s Summarizer) Option {
	return func(srv *Server) {
		srv.summarizer = s
	}
}

func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/sessions", s.handleListSessions)
	s.mux.HandleFunc("/api/pages/", s.handlePage)
	s.mux.HandleFunc("/api/summarize", s.handleSummarize)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
