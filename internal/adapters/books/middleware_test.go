package books_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bookshelf/internal/adapters/books"
	"bookshelf/internal/core"
	"bookshelf/internal/logging"
)

type httpObservation struct {
	method string
	route  string
	status int
}

type recordingHTTPMetrics struct {
	mu  sync.Mutex
	obs []httpObservation
}

func (m *recordingHTTPMetrics) ObserveHTTP(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, httpObservation{method: method, route: route, status: status})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := books.WithMiddleware(next, nil, nil)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/records", nil))
	id := resp.Header().Get(books.RequestIDHeader)
	if id == "" || id != seen {
		t.Fatalf("expected generated id on response and context, got %q / %q", id, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set(books.RequestIDHeader, "abc-123")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if got := resp.Header().Get(books.RequestIDHeader); got != "abc-123" || seen != "abc-123" {
		t.Fatalf("expected caller id to be propagated, got %q / %q", got, seen)
	}
}

func TestMiddlewareLogsAndObserves(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)
	metrics := &recordingHTTPMetrics{}
	h, _ := setupHandler(t)
	wrapped := books.WithMiddleware(h, zap.New(obsCore), metrics)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/records"},
		{http.MethodDelete, "/records/42"},
	} {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
	}

	want := []httpObservation{
		{method: http.MethodGet, route: "/records", status: http.StatusOK},
		{method: http.MethodDelete, route: "/records/{id}", status: http.StatusNotFound},
	}
	if len(metrics.obs) != len(want) {
		t.Fatalf("expected %d observations, got %+v", len(want), metrics.obs)
	}
	for i := range want {
		if metrics.obs[i] != want[i] {
			t.Fatalf("observation %d: expected %+v, got %+v", i, want[i], metrics.obs[i])
		}
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 access log entries, got %d", len(entries))
	}
	fields := entries[1].ContextMap()
	if fields["status"] != int64(http.StatusNotFound) || fields["route"] != "/records/{id}" {
		t.Fatalf("unexpected access log fields: %+v", fields)
	}
	if fields["request_id"] == "" {
		t.Fatalf("access log missing request id")
	}
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	obsCore, logs := observer.New(zapcore.ErrorLevel)
	metrics := &recordingHTTPMetrics{}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	h := books.WithMiddleware(next, zap.New(obsCore), metrics)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/records", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if logs.FilterMessage("panic serving request").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
	if len(metrics.obs) != 1 || metrics.obs[0].status != http.StatusInternalServerError {
		t.Fatalf("expected a 500 observation, got %+v", metrics.obs)
	}
}

func TestMiddlewareRepanicsOnAbort(t *testing.T) {
	obsCore, logs := observer.New(zapcore.ErrorLevel)
	metrics := &recordingHTTPMetrics{}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})
	h := books.WithMiddleware(next, zap.New(obsCore), metrics)

	resp := httptest.NewRecorder()
	func() {
		defer func() {
			if p := recover(); p != http.ErrAbortHandler {
				t.Fatalf("expected http.ErrAbortHandler to propagate, got %v", p)
			}
		}()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/records", nil))
	}()
	if resp.Body.Len() != 0 {
		t.Fatalf("aborted request must not get a response body, got %q", resp.Body.String())
	}
	if logs.Len() != 0 {
		t.Fatalf("abort must not be logged as a panic")
	}
}

type brokenSnapshots struct{}

func (brokenSnapshots) ReadSnapshot(context.Context) ([]byte, error) {
	return nil, errors.New("disk gone")
}
func (brokenSnapshots) WriteSnapshot(context.Context, []byte) error { return errors.New("disk gone") }
func (brokenSnapshots) Driver() string                              { return "broken" }

func TestStorageFailureLogCarriesRequestID(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(obsCore)
	store := core.NewStore(brokenSnapshots{}, core.WithStoreLogger(logger), core.WithStrictStorage(true))
	svc := core.NewService(store, core.WithLogger(logger))
	h := books.WithMiddleware(books.NewHandler(svc, logger), logger, nil)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set(books.RequestIDHeader, "req-77")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	for _, msg := range []string{"load books snapshot", "book operation failed"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("%s: expected one entry, got %d", msg, len(entries))
		}
		if got := entries[0].ContextMap()["request_id"]; got != "req-77" {
			t.Fatalf("%s: expected request_id req-77, got %v", msg, got)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/":                  "/",
		"/metrics":           "/metrics",
		"/healthz/":          "/healthz",
		"/records":           "/records",
		"/records/":          "/records",
		"/records/available": "/records/available",
		"/records/17":        "/records/{id}",
		"/records/abc":       "/records/other",
		"/records/1/2":       "/records/other",
		"/books":             "/books",
		"/books/3":           "/books/{id}",
		"/favicon.ico":       "other",
		"/recordsX":          "other",
	}
	for path, want := range cases {
		if got := books.RouteLabel(path); got != want {
			t.Errorf("RouteLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
