// Package server exposes the insights service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/insights-api/internal/model"
	"github.com/sells-group/insights-api/internal/ratelimit"
)

// Route scopes used as rate-limit buckets.
const (
	scopeAnalyze = "analyze"
	scopeChat    = "chat"
)

// Service is the pipeline the handlers call.
type Service interface {
	Analyze(ctx context.Context, url string, questions []string) (*model.AnalysisResult, error)
	Chat(ctx context.Context, url, query string, history []model.ConversationTurn) (*model.ChatResult, error)
}

// Options configures the HTTP layer.
type Options struct {
	APISecret        string
	AnalyzePerMinute int
	ChatPerMinute    int
	CORSOrigins      []string
}

// Server holds the handler dependencies.
type Server struct {
	svc     Service
	limiter *ratelimit.Limiter
	opts    Options
	now     func() time.Time
}

// New creates a Server. A nil limiter disables rate limiting.
func New(svc Service, limiter *ratelimit.Limiter, opts Options) *Server {
	if limiter == nil {
		limiter = ratelimit.New(nil)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{svc: svc, limiter: limiter, opts: opts, now: time.Now}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.With(s.rateLimit(scopeAnalyze, s.opts.AnalyzePerMinute, time.Minute)).
			Post("/analyze", s.handleAnalyze)
		r.With(s.rateLimit(scopeChat, s.opts.ChatPerMinute, time.Minute)).
			Post("/chat", s.handleChat)
	})

	return r
}
