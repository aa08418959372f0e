// Command bookshelf serves the book collection over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookshelf/internal/adapters/books"
	"bookshelf/internal/config"
	"bookshelf/internal/core"
	"bookshelf/internal/logging"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		exitFunc(2)
		return
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		exitFunc(2)
		return
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("bookshelf stopped", zap.Error(err))
		exitFunc(1)
	}
}

// app is the wired request path plus whatever must be released on exit.
type app struct {
	handler http.Handler
	driver  string
	closer  io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	logger = logging.OrNop(logger)
	snapshots, err := core.OpenSnapshotStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := core.NewStore(snapshots,
		core.WithStoreLogger(logger),
		core.WithStrictStorage(cfg.StrictStorage),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewPrometheusMetrics(reg)
	svc := core.NewService(store, core.WithMetrics(metrics), core.WithLogger(logger))

	a := &app{driver: snapshots.Driver()}
	if c, ok := snapshots.(io.Closer); ok {
		a.closer = c
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "storage": a.driver})
	})
	mux.Handle("/", books.NewHandler(svc, logger))
	a.handler = books.WithMiddleware(mux, logger, metrics)
	return a, nil
}

// run serves until ctx is cancelled, then drains in-flight requests within
// cfg.ShutdownTimeout. ready, when set, receives the bound address.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger, ready func(net.Addr)) error {
	logger = logging.OrNop(logger)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("bookshelf listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("storage", a.driver),
		zap.Bool("strict_storage", cfg.StrictStorage),
	)
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
