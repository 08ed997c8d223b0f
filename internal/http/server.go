// Package http provides the ledger's HTTP server, routes and middleware.
package http

import (
	"context"
	"net/http"
	"sync"

	"fintrack/internal/services"
)

type Server struct {
	http.Server
	svc          *services.EntryService
	tokens       map[string]string
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. tokens maps bearer tokens to owner ids; an empty map rejects
// every authenticated route.
func NewServer(addr string, svc *services.EntryService, tokens map[string]string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:         svc,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /finance", s.protect(s.handleListEntries))
	mux.HandleFunc("POST /finance", s.protect(s.handleCreateEntry))
	mux.HandleFunc("PUT /finance/{id}", s.protect(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /finance/{id}", s.protect(s.handleDeleteEntry))
	mux.HandleFunc("GET /finance/filter", s.protect(s.handleFilterEntries))
	mux.HandleFunc("GET /finance/summary", s.protect(s.handleSummary))
	mux.HandleFunc("GET /finance/category-stats", s.protect(s.handleCategoryStats))
	mux.HandleFunc("GET /finance/monthly-stats", s.protect(s.handleMonthlyStats))
	mux.HandleFunc("GET /finance/report", s.protect(s.handlePeriodReport))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
