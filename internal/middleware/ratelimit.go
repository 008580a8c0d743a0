package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/cache"
	"github.com/expensetrack/expensetrack/internal/metrics"
)

// Limiter is the token bucket store behind the rate limit middleware.
type Limiter interface {
	CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

var _ Limiter = (*cache.Cache)(nil)

// RateLimitConfig configures RateLimitUser and RateLimitIP.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter Limiter
	Metrics metrics.Recorder

	// Per user, for authenticated routes. Zero UserRPM disables it.
	UserRPM   int
	UserBurst int

	// Per client IP, for the credential endpoints.
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// check asks the limiter about one caller. An empty key lets the request
// through unchecked.
type check func(r *http.Request) (key string, result *cache.RateLimitResult, err error)

// RateLimitUser limits authenticated requests per user. It must run after
// Auth; anonymous requests pass through.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.UserRPM <= 0 {
		return passthrough
	}
	return cfg.enforce("user", cfg.UserRPM, func(r *http.Request) (string, *cache.RateLimitResult, error) {
		ac := auth.AuthFromContext(r.Context())
		if ac == nil {
			return "", nil, nil
		}
		userID := ac.UserID.String()
		res, err := cfg.Limiter.CheckUserRateLimit(r.Context(), userID, cfg.UserRPM, cfg.UserBurst)
		return userID, res, err
	})
}

// RateLimitIP limits requests per client IP to slow down credential
// guessing on login and register.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.IPEnabled {
		return passthrough
	}
	return cfg.enforce("ip", cfg.IPRPS, func(r *http.Request) (string, *cache.RateLimitResult, error) {
		ip := getClientIP(r)
		res, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPRPS, cfg.IPBurst)
		return ip, res, err
	})
}

func passthrough(next http.Handler) http.Handler { return next }

// enforce answers 429 when the bucket is empty. Limiter failures are logged
// and the request is served, so a Redis outage does not take the API down.
func (cfg RateLimitConfig) enforce(scope string, limit int, try check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, result, err := try(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				cfg.Logger.LogAttrs(r.Context(), slog.LevelError, "rate limit check failed",
					slog.String("scope", scope),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			// Client IPs stay out of the logs.
			attrs := []slog.Attr{
				slog.String("scope", scope),
				slog.String("route", r.Method+" "+routePattern(r)),
				slog.Duration("retry_after", result.RetryAfter),
				slog.String("request_id", GetRequestID(r.Context())),
			}
			if scope == "user" {
				attrs = append(attrs, slog.String("user_id", key))
			}
			cfg.Logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit exceeded", attrs...)
			cfg.Metrics.IncRateLimited(scope)
			writeTooManyRequests(w, result.RetryAfter)
		})
	}
}

// writeTooManyRequests answers 429 with Retry-After in whole seconds, at
// least one.
func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := max(int(retryAfter.Round(time.Second)/time.Second), 1)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		"Rate limit exceeded. Retry after "+strconv.Itoa(seconds)+" seconds.")
}

// getClientIP returns the host part of RemoteAddr. Forwarding headers are
// not read here; the router resolves them into RemoteAddr once, up front.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
