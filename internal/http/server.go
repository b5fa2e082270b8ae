// Package http exposes the ledger as a small JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cassa/internal/format"
	"cassa/internal/ledger"
	"cassa/internal/log"
	"cassa/internal/middleware/ratelimit"
	"cassa/internal/middleware/security"
	"cassa/internal/middleware/trace"
)

const maxBodyBytes = 64 << 10

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server serves the ledger API.
type Server struct {
	http.Server
	svc          *ledger.Service
	money        *format.Money
	ready        ReadinessCheck
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithReadiness adds a dependency check to /readyz.
func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) { s.ready = check }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit caps state-changing requests per client and minute.
func WithRateLimit(requestsPerMinute int) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: requestsPerMinute})
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, money *format.Money, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		svc:   svc,
		money: money,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/month", s.handleMonth)
	mux.HandleFunc("POST /api/month/complete", s.handleCompleteMonth)
	mux.HandleFunc("POST /api/earnings", s.handleAddEarning)
	mux.HandleFunc("DELETE /api/earnings/{id}", s.handleDeleteEarning)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/summaries", s.handleSummaries)
	mux.HandleFunc("GET /api/categories", handleCategories)

	clientIP := security.NewClientIPResolver().ClientIP

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
		})(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.logger, clientIP).Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
