package server

import (
	"context"
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	apiKeyKey
)

// RequestIDFrom returns the request id set by the middleware, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID keeps a caller-supplied X-Request-ID or assigns a new uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
			zap.String("request_id", RequestIDFrom(r.Context())),
		)
	})
}

// requireAPIKey checks "Authorization: Bearer <secret>" before anything
// else on protected routes runs.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeDetail(w, http.StatusUnauthorized, "Invalid or missing Authorization header")
			return
		}
		// The secret is the second space-separated field; anything after it
		// is ignored.
		token := strings.Split(header, " ")[1]
		if s.opts.APISecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.APISecret)) != 1 {
			writeDetail(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyKey, token)))
	})
}

// rateLimit enforces limit requests per window per API key. Store errors
// let the request through.
func (s *Server) rateLimit(scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _ := r.Context().Value(apiKeyKey).(string)

			d, err := s.limiter.Allow(r.Context(), scope, key, limit, window)
			if err != nil {
				zap.L().Warn("ratelimit: check failed, allowing request",
					zap.String("scope", scope),
					zap.String("request_id", RequestIDFrom(r.Context())),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
				writeDetail(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
