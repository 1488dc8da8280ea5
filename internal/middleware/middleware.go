package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/metrics"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
	preflight  bool
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type Options struct {
	// AuthToken enables bearer auth on protected routes when set
	AuthToken      string
	RatePerSecond  float64
	RateBurst      int
	AllowedOrigins []string
}

type Middleware struct {
	authToken string
	limiter   *IPRateLimiter
	origins   map[string]bool
	allowAny  bool
	logger    *logger_i.Logger
}

func New(opts Options) *Middleware {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = config.RATE_LIMIT_PER_SECOND
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = config.BURST_RATE_LIMIT_PER_SECOND
	}
	m := &Middleware{
		authToken: opts.AuthToken,
		limiter:   NewIPRateLimiter(rate.Limit(opts.RatePerSecond), opts.RateBurst),
		origins:   make(map[string]bool),
		logger:    logger_i.NewLogger("middleware"),
	}
	for _, origin := range opts.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			m.allowAny = true
		}
		if origin != "" {
			m.origins[origin] = true
		}
	}
	if m.authToken == "" {
		m.logger.Warn("AUTH_TOKEN is empty, protected routes accept every request")
	}
	return m
}

// StartLimiterSweeper drops idle per-IP limiters until ctx is done.
func (m *Middleware) StartLimiterSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.limiter.Sweep(idleTTL); removed > 0 {
					m.logger.Debug("Swept idle rate limiters", "removed", removed)
				}
			}
		}
	}()
}

// Wrap runs the full chain: trace, recovery, CORS, auth, rate limit and metrics.
func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, true)
}

// WrapPublic skips auth and rate limiting, for health checks and the like.
func (m *Middleware) WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, false)
}

func (m *Middleware) WrapHandler(next http.Handler) http.Handler {
	return m.Wrap(next.ServeHTTP)
}

func (m *Middleware) wrap(next http.HandlerFunc, protected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := metrics.NewStatusRecorder(w)
		re := m.processRequest(requestResponseStruct{req: r, writer: rec}, protected)

		defer func() {
			recordRequest(re.req, rec.Status)
			re.logger.Debug("Request finished", "status", rec.Status, "duration", time.Since(start))
		}()
		defer recovery(re)

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		if re.preflight {
			rec.WriteHeader(http.StatusNoContent)
			return
		}
		next(rec, re.req)
	}
}

func (m *Middleware) processRequest(re requestResponseStruct, protected bool) requestResponseStruct {
	re.logger = m.logger
	re = injectTrace(re)
	re.logger.Info("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = m.cors(re)
	if re.badRequest.isBadRequest || re.preflight || !protected {
		return re
	}
	re = m.authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	return m.rateLimiter(re)
}

// recordRequest labels by route pattern so document ids do not explode the series.
func recordRequest(r *http.Request, status int) {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}
	metrics.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
