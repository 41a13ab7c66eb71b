package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/thinkscotty/outreach/internal/auth"
	"github.com/thinkscotty/outreach/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id (taken from X-Request-ID or
// generated), echoes it back and logs the outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []logger.Field{
			logger.String("request_id", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int("bytes", rec.bytes),
			logger.Duration("duration", time.Since(start)),
		}
		if rec.status >= http.StatusInternalServerError {
			s.log.Warn("Request failed", fields...)
			return
		}
		s.log.Debug("Request served", fields...)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				s.log.Error("Panic in handler",
					logger.Any("panic", rv),
					logger.String("path", r.URL.Path),
					logger.String("stack", string(debug.Stack())),
				)
				jsonError(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey guards /api. Without a configured hash the API is off.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch key := auth.BearerToken(r); {
		case !s.verifier.Enabled():
			jsonError(w, "api disabled: no key hash configured", http.StatusServiceUnavailable)
		case key == "":
			w.Header().Set("WWW-Authenticate", `Bearer realm="outreach"`)
			jsonError(w, "missing bearer key", http.StatusUnauthorized)
		case !s.verifier.Verify(key):
			w.Header().Set("WWW-Authenticate", `Bearer realm="outreach"`)
			jsonError(w, "invalid key", http.StatusUnauthorized)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
