package books

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookshelf/internal/logging"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// HTTPMetrics receives one observation per served request.
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithMiddleware wraps next with request ids, panic recovery, access logging
// and metrics. metrics may be nil.
func WithMiddleware(next http.Handler, logger *zap.Logger, metrics HTTPMetrics) http.Handler {
	logger = logging.OrNop(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(logging.WithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.Error("panic serving request",
					zap.Any("panic", p),
					zap.String("request_id", id),
					zap.Stack("stack"),
				)
				if rec.status == 0 {
					writeError(rec, http.StatusInternalServerError, "internal error")
				}
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := RouteLabel(r.URL.Path)
			if metrics != nil {
				metrics.ObserveHTTP(r.Method, route, status, elapsed)
			}
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", rec.bytes),
				zap.Duration("duration", elapsed),
				zap.String("request_id", id),
			)
		}()
		next.ServeHTTP(rec, r)
	})
}

// RouteLabel collapses a request path to a bounded route template for metrics.
func RouteLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	switch path {
	case "":
		return "/"
	case "/metrics", "/healthz":
		return path
	}
	for _, prefix := range collectionPaths {
		if path == prefix {
			return prefix
		}
		rest, ok := strings.CutPrefix(path, prefix+"/")
		if !ok {
			continue
		}
		if rest == "available" {
			return prefix + "/available"
		}
		if _, err := strconv.Atoi(rest); err == nil {
			return prefix + "/{id}"
		}
		return prefix + "/other"
	}
	return "other"
}
