package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonathan/procurement-watch/internal/catalog"
	"github.com/jonathan/procurement-watch/internal/config"
	"github.com/jonathan/procurement-watch/internal/scheduler"
	"github.com/jonathan/procurement-watch/internal/server/middleware"
	"github.com/jonathan/procurement-watch/internal/server/ratelimit"
	"github.com/jonathan/procurement-watch/internal/types"
)

// RunArchive lists run records kept beyond the in-store ledger
type RunArchive interface {
	ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error)
	CountRuns(ctx context.Context) (int, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	runner      *scheduler.Runner
	catalog     *catalog.Catalog
	archive     RunArchive
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	now         func() time.Time

	// background pulls outlive their request; they are bound to baseCtx
	baseCtx    context.Context
	baseCancel context.CancelFunc
	pulls      sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Port    int
	Runner  *scheduler.Runner
	Catalog *catalog.Catalog
	// Archive is optional; without it /runs serves the store ledger
	Archive RunArchive
	// JWT is optional; without it mutating routes are open
	JWT *config.JWTConfig
	// RateLimit defaults to ratelimit.LoadConfig()
	RateLimit *ratelimit.Config
	Now       func() time.Time
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("server requires a runner")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("server requires a catalog")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	s := &Server{
		runner:      cfg.Runner,
		catalog:     cfg.Catalog,
		archive:     cfg.Archive,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		now:         cfg.Now,
		baseCtx:     baseCtx,
		baseCancel:  baseCancel,
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /notices", s.handleNotices)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /sources", s.handleSources)
	mux.HandleFunc("POST /pull", s.handlePull)
	mux.HandleFunc("POST /pull/stream", s.handlePullStream)
	mux.HandleFunc("POST /pull/stop", s.handleStop)
	mux.HandleFunc("DELETE /store", s.handleClear)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(s.withAuth(mux)))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // pull streams last as long as the run
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully: in-flight requests finish and background pulls are stopped.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", l.Addr())
		errCh <- s.httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		s.stopBackground()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.stopBackground()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Start listens on the configured port until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, l)
}

// stopBackground cancels background pulls and waits for them to persist
func (s *Server) stopBackground() {
	s.baseCancel()
	s.pulls.Wait()
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth requires an operator token on mutating routes when JWT is configured
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.jwtService == nil {
		return next
	}
	mutating := func(r *http.Request) bool {
		return r.Method == http.MethodPost || r.Method == http.MethodDelete
	}
	return middleware.RequireFor(s.jwtService.AsTokenValidator(), mutating)(next)
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID uses the IP address from RemoteAddr
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 for API clients that exceed their bucket.
// This is the API's own limit, unrelated to the pull gate.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
