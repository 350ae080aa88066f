package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/R167/raspi_exporter/internal/collector"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MetricsHandler produces one scrape body
type MetricsHandler interface {
	Handle(ctx context.Context) ([]byte, error)
}

// Config holds HTTP server settings
type Config struct {
	Port            int
	RateLimit       rate.Limit // 0 disables rate limiting
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the defaults used by the exporter
func DefaultConfig() Config {
	return Config{
		Port:            8021,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    0, // scrapes wait on the status command
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server serves GET /metrics
type Server struct {
	config      Config
	handler     MetricsHandler
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	httpServer  *http.Server
}

// New creates a server for handler
func New(config Config, handler MetricsHandler, logger *slog.Logger) *Server {
	s := &Server{
		config:  config,
		handler: handler,
		logger:  logger,
	}
	if config.RateLimit > 0 {
		burst := config.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		s.rateLimiter = rate.NewLimiter(config.RateLimit, burst)
	}

	s.httpServer = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", s.withRateLimit(s.handleMetrics))
	return mux
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body, err := s.handler.Handle(r.Context())
	if err != nil {
		s.logger.Error("Failed to handle scrape", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", collector.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("Failed to write scrape response", "error", err)
	}
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	if s.rateLimiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow() {
			s.logger.Warn("Scrape rejected by rate limit", "remote", r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Listen binds the configured port on all interfaces
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully:
// the listener closes and in-flight scrapes are allowed to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Listening", "address", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down, waiting for in-flight scrapes")

		shutdownCtx := context.Background()
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.config.ShutdownTimeout)
			defer cancel()
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Run binds the listener and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
