// Package api serves the enrichment webhook and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/model"
)

// DefaultRequestTimeout bounds one synchronous enrichment. It covers the
// longest provider wait plus persistence.
const DefaultRequestTimeout = 10 * time.Minute

// Enricher runs enrichment attempts.
type Enricher interface {
	Enrich(ctx context.Context, personID string) (*enrich.Result, error)
	EnrichPerson(ctx context.Context, p model.Person) (*enrich.Result, error)
}

// AttemptLister reads the attempt history.
type AttemptLister interface {
	ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.Attempt, error)
}

// WebhookObserver counts webhook outcomes.
type WebhookObserver interface {
	ObserveWebhook(outcome string)
}

// Options configures a Server. Only Enricher is required.
type Options struct {
	Enricher       Enricher
	History        AttemptLister
	Metrics        http.Handler
	Observer       WebhookObserver
	TriggerStatus  string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Server holds the handlers' dependencies.
type Server struct {
	enricher      Enricher
	history       AttemptLister
	metrics       http.Handler
	observer      WebhookObserver
	triggerStatus string
	origins       []string
	timeout       time.Duration
	now           func() time.Time
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	s := &Server{
		enricher:      opts.Enricher,
		history:       opts.History,
		metrics:       opts.Metrics,
		observer:      opts.Observer,
		triggerStatus: opts.TriggerStatus,
		origins:       opts.AllowedOrigins,
		timeout:       opts.RequestTimeout,
		now:           opts.Now,
	}
	if s.triggerStatus == "" {
		s.triggerStatus = "Working"
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRequestTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Post("/webhook", s.handleWebhook)
	r.Post("/people/{personID}/enrich", s.handleEnrichPerson)
	if s.history != nil {
		r.Get("/attempts", s.handleListAttempts)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveWebhook(outcome)
	}
}

// enrichContext detaches the attempt from the client connection so a
// dropped request does not abandon submitted jobs, and bounds it.
func (s *Server) enrichContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.timeout)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
