// Package server exposes the scan pipeline over HTTP along with health,
// readiness and Prometheus endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamashdown/edgescan/internal/ratelimit"
	"github.com/liamashdown/edgescan/internal/scanner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Scanner is the pipeline as seen by the HTTP layer
type Scanner interface {
	Scan(ctx context.Context) scanner.Result
	ScanSingle(ctx context.Context, target scanner.Target) scanner.Result
}

// ReadyFunc reports whether a dependency is usable; nil means always ready
type ReadyFunc func(ctx context.Context) error

// Handler holds the HTTP handlers' dependencies
type Handler struct {
	scanner Scanner
	ready   ReadyFunc
	limiter *ratelimit.Limiter
	log     *logrus.Logger
}

// NewHandler creates a handler bound to the scanner
func NewHandler(s Scanner, ready ReadyFunc, log *logrus.Logger) *Handler {
	return &Handler{scanner: s, ready: ready, log: log}
}

// WithScanLimiter throttles /api/scan; a nil limiter admits everything
func (h *Handler) WithScanLimiter(l *ratelimit.Limiter) *Handler {
	h.limiter = l
	return h
}

// NewRouter registers routes and the middleware stack
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(recoverer(h.log))

	r.Get("/health", h.health)
	r.Get("/ready", h.readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(throttle(h.limiter, h.log))
		r.Get("/scan", h.scan)
		r.Post("/scan", h.scan)
	})

	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler, writeTimeout time.Duration, log *logrus.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
