package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamashdown/edgescan/internal/market"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/liamashdown/edgescan/internal/ratelimit"
	"github.com/liamashdown/edgescan/internal/scanner"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 1 << 20

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			metrics.RecordHealthCheck(false)
			h.log.WithError(err).Warn("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	metrics.RecordHealthCheck(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// scan runs a full scan, or a single-ticker scan when a POST body names a target
func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	target, single, err := decodeTarget(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The scan runs to completion even if the client goes away
	ctx := context.WithoutCancel(r.Context())

	var res scanner.Result
	if single {
		res = h.scanner.ScanSingle(ctx, target)
	} else {
		res = h.scanner.Scan(ctx)
	}

	w.Header().Set("X-Scan-Id", res.ScanID)
	w.Header().Set("X-Scan-Outcome", string(res.Outcome))

	if res.Outcome == scanner.OutcomeFailure {
		status := http.StatusInternalServerError
		if errors.Is(res.Err, scanner.ErrUnknownSource) || errors.Is(res.Err, scanner.ErrInvalidTarget) {
			status = http.StatusBadRequest
		}
		msg := "scan failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		writeError(w, status, msg)
		return
	}

	candidates := res.Candidates
	if candidates == nil {
		candidates = []market.ScoredCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// decodeTarget reads an optional JSON body. An empty body or an object naming
// neither source nor ticker means a full scan.
func decodeTarget(r *http.Request) (scanner.Target, bool, error) {
	if r.Method != http.MethodPost || r.Body == nil {
		return scanner.Target{}, false, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return scanner.Target{}, false, errors.New("could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return scanner.Target{}, false, nil
	}

	var target scanner.Target
	if err := json.Unmarshal(body, &target); err != nil {
		return scanner.Target{}, false, errors.New("invalid JSON body")
	}
	if target.Source == "" && target.Ticker == "" {
		return scanner.Target{}, false, nil
	}
	return target, true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request through logrus
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				return
			}
			log.WithFields(logrus.Fields{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("HTTP request")
		})
	}
}

// recoverer turns a handler panic into the JSON error envelope
func recoverer(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithFields(logrus.Fields{
						"request_id": middleware.GetReqID(r.Context()),
						"panic":      rec,
					}).Error("Recovered from handler panic")
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// throttle rejects requests with 429 once the limiter runs dry
func throttle(l *ratelimit.Limiter, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				metrics.ScansThrottled.Inc()
				retry := int(math.Ceil(l.RetryAfter().Seconds()))
				if retry < 1 {
					retry = 1
				}
				log.WithField("request_id", middleware.GetReqID(r.Context())).Debug("Scan request throttled")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, http.StatusTooManyRequests, "too many scan requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
