package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/campaign-briefing/internal/pipeline"
	"github.com/jonathan/campaign-briefing/internal/server/ratelimit"
	"github.com/jonathan/campaign-briefing/internal/types"
)

// Briefer runs the briefing pipelines
type Briefer interface {
	TopicBriefing(ctx context.Context, issue string) (*types.ArticleSearchResult, error)
	TopicBriefingWithProgress(ctx context.Context, issue string, onProgress pipeline.ProgressCallback) (*types.ArticleSearchResult, error)
	DeepDive(ctx context.Context, metrics types.ExpandedMetrics, category types.Category) (*types.DeepDiveResult, error)
}

// Config holds server configuration
type Config struct {
	Port           int
	ArticlesTTL    time.Duration
	DeepDiveTTL    time.Duration
	RequestTimeout time.Duration
	// RateLimit nil uses ratelimit.DefaultConfig.
	RateLimit *ratelimit.Config
	// Registry nil creates a private registry with Go and process collectors.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	briefer        Briefer
	cache          *gocache.Cache
	articlesTTL    time.Duration
	deepDiveTTL    time.Duration
	requestTimeout time.Duration
	rateLimiter    *ratelimit.Limiter
	registry       *prometheus.Registry
	metrics        *metrics
	logger         *slog.Logger
}

// New creates a new server instance
func New(cfg Config, briefer Briefer) (*Server, error) {
	if briefer == nil {
		return nil, errors.New("server: briefer is required")
	}
	if cfg.ArticlesTTL <= 0 {
		cfg.ArticlesTTL = time.Hour
	}
	if cfg.DeepDiveTTL <= 0 {
		cfg.DeepDiveTTL = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		briefer:        briefer,
		cache:          gocache.New(cfg.ArticlesTTL, 10*time.Minute),
		articlesTTL:    cfg.ArticlesTTL,
		deepDiveTTL:    cfg.DeepDiveTTL,
		requestTimeout: cfg.RequestTimeout,
		rateLimiter:    ratelimit.NewLimiter(cfg.RateLimit),
		registry:       registry,
		metrics:        newMetrics(registry),
		logger:         logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues/{issue}/articles", s.handleArticles)
	mux.HandleFunc("GET /issues/{issue}/articles/stream", s.handleArticlesStream)
	mux.HandleFunc("POST /deep-dive/{category}", s.handleDeepDive)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRequestID(s.withLogging(s.withMetrics(s.withRateLimit(s.withCORS(mux))))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled or the process receives SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.rateLimiter.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info("server stopped")
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", "error", err)
	}
}

// rawJSONResponse writes an already encoded JSON body
func (s *Server) rawJSONResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("writing response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr; forwarded headers are not trusted.
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

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.requestLogger(r).Warn("rate limit exceeded", "limit", info.Limit, "reset", info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
