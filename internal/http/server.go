// Package http exposes the budget service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/services"
)

// Options tune the server's request handling.
type Options struct {
	// ImportMaxBytes caps the size of uploaded statement files.
	ImportMaxBytes int64
	// SummaryCacheSize and SummaryCacheTTL control the month summary cache.
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

func (o *Options) withDefaults() {
	if o.ImportMaxBytes <= 0 {
		o.ImportMaxBytes = 5 << 20
	}
	if o.SummaryCacheSize <= 0 {
		o.SummaryCacheSize = 64
	}
	if o.SummaryCacheTTL <= 0 {
		o.SummaryCacheTTL = 30 * time.Second
	}
}

type Server struct {
	http.Server

	budget  *services.BudgetService
	imports *services.ImportService

	rateLimiter    *rateLimiter
	summaryCache   *cache.LRUCache[core.MonthSummary]
	importMaxBytes int64

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, budget *services.BudgetService, imports *services.ImportService, opts Options) *Server {
	opts.withDefaults()

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		budget:         budget,
		imports:        imports,
		rateLimiter:    newRateLimiter(),
		summaryCache:   cache.NewLRUCache[core.MonthSummary](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		importMaxBytes: opts.ImportMaxBytes,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /overview", s.withMiddleware(s.handleOverview))

	mux.HandleFunc("POST /months", s.withMiddleware(s.handleCreateMonth))
	mux.HandleFunc("GET /months", s.withMiddleware(s.handleListMonths))
	mux.HandleFunc("GET /months/{key}", s.withMiddleware(s.handleGetMonth))
	mux.HandleFunc("GET /months/{key}/summary", s.withMiddleware(s.handleMonthSummary))
	mux.HandleFunc("POST /months/{key}/expenses", s.withMiddleware(s.handleCommitExpense))
	mux.HandleFunc("POST /months/{key}/import", s.withMiddleware(s.handleImport))
	mux.HandleFunc("POST /months/{key}/resolve", s.withMiddleware(s.handleResolve))

	mux.HandleFunc("GET /categories", s.withMiddleware(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.withMiddleware(s.handleAddCategory))
	mux.HandleFunc("DELETE /categories/{name}", s.withMiddleware(s.handleRemoveCategory))

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
