// Package server exposes the indexed data over a small HTTP API. All reads
// go through the storage facade so the cache-aside path is shared with every
// other consumer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/state"
	"github.com/cypherlabs/cypher-indexer/service/storage"
)

// Querier is the read surface of the storage facade.
type Querier interface {
	GetAccount(ctx context.Context, address string) (*storage.AccountRecord, error)
	GetTransaction(ctx context.Context, signature string) (*storage.TransactionRecord, error)
	GetTransactionsByAddress(ctx context.Context, address string, limit int) ([]*storage.TransactionRecord, error)
}

// Server is the HTTP query server for the indexer.
type Server struct {
	addr    string
	querier Querier
	state   *state.Table
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server.
// The state table is optional - if nil, the live state endpoints won't be
// available. The metrics is optional - if nil, the metrics endpoint won't be
// available.
func New(addr string, querier Querier, table *state.Table, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		querier: querier,
		state:   table,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/accounts/{address}", s.instrument("get_account", handleGetAccount(s.querier, s.logger)))
	mux.Handle("GET /api/v1/accounts/{address}/transactions", s.instrument("list_transactions", handleListTransactions(s.querier, s.logger)))
	mux.Handle("GET /api/v1/transactions/{signature}", s.instrument("get_transaction", handleGetTransaction(s.querier, s.logger)))

	// Live state endpoints read the in-memory table, not storage.
	if s.state != nil {
		mux.Handle("GET /api/v1/state/accounts", s.instrument("list_state", handleListState(s.state, s.logger)))
		s.logger.Info("live state endpoints enabled")
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return metricsMiddleware(name, s.metrics, next)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
