package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Middleware limits requests per client IP and route. Limiter failures are
// logged and the request is let through.
func Middleware(limiter Limiter, limit int, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := buildKey(r)

			allowed, remaining, retryAfter, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"message":     "too many requests, please try again later",
					"retry_after": secs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func buildKey(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}

	route := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			route = pattern
		}
	}

	return "ip:" + ip + ":route:" + r.Method + " " + route
}
