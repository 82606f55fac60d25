package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"loan-matchmaker/internal/app"
	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/handlers"
	"loan-matchmaker/internal/metrics"
	"loan-matchmaker/internal/services/conversation"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/ses"
	"loan-matchmaker/internal/utils"
)

// Response is the envelope shared with the Lambda handlers.
type Response = handlers.Response

type mailer interface {
	SendMatchSummary(ctx context.Context, to string, summary ses.MatchSummary) (*ses.SendEmailResult, error)
}

// Deps are the services the HTTP layer calls.
type Deps struct {
	Conversation *conversation.Service
	Engine       *matcher.Engine
	Mailer       mailer
	Health       func(context.Context) app.HealthStatus
	Stats        func(context.Context) (*app.Stats, error)
	Registry     *prometheus.Registry
	Metrics      *metrics.Recorder
	Logger       *zap.Logger
}

// Server holds all dependencies of the HTTP API.
type Server struct {
	conv     *conversation.Service
	engine   *matcher.Engine
	mailer   mailer
	health   func(context.Context) app.HealthStatus
	stats    func(context.Context) (*app.Stats, error)
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	logger   *zap.Logger
	validate *validator.Validate
	limiter  *clientLimiter
	trusted  []netip.Prefix
	origins  []string
}

// NewServer creates the API server.
func NewServer(d Deps, cfg *config.Config) *Server {
	s := &Server{
		conv:     d.Conversation,
		engine:   d.Engine,
		health:   d.Health,
		stats:    d.Stats,
		registry: d.Registry,
		metrics:  d.Metrics,
		logger:   utils.OrNop(d.Logger),
		validate: newValidator(),
		limiter:  newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		origins:  cfg.CORSAllowedOrigins,
	}
	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		s.logger.Warn("Ignoring trusted proxies", zap.Error(err))
	}
	s.trusted = trusted

	// A typed nil *ses.Service must not satisfy the mailer check below.
	if m, ok := d.Mailer.(*ses.Service); !ok || m != nil {
		s.mailer = d.Mailer
	}
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/sessions", s.startSessionHandler)
	api.HandleFunc("GET /api/sessions/{id}", s.sessionHandler)
	api.HandleFunc("POST /api/sessions/{id}/messages", s.messageHandler)
	api.HandleFunc("PUT /api/sessions/{id}/parameters/{name}", s.parameterHandler)
	api.HandleFunc("POST /api/sessions/{id}/match", s.matchHandler)
	api.HandleFunc("GET /api/sessions/{id}/matches", s.matchesHandler)
	api.HandleFunc("POST /api/sessions/{id}/end", s.endSessionHandler)
	api.HandleFunc("POST /api/sessions/{id}/email", s.emailHandler)
	api.HandleFunc("GET /api/lenders", s.lendersHandler)
	api.HandleFunc("GET /api/stats", s.statsHandler)
	mux.Handle("/api/", s.rateLimit(api))

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.instrument(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs and counts every request by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.HTTPRequest(route, rec.status, elapsed)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r, s.trusted)) {
			writeJSON(w, http.StatusTooManyRequests, Response{Success: false, Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := handlers.StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, status, Response{Success: false, Error: "internal error"})
		return
	}
	writeJSON(w, status, Response{Success: false, Error: err.Error()})
}
