package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
	"github.com/dropDatabas3/mockidp/internal/rate"
)

// clientIP extrae la IP del cliente, considerando proxies.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// ClientRateKey: path|ip|client. El client sale del header Basic (no se lee
// el body para no consumirlo antes que el controller).
func ClientRateKey(r *http.Request) string {
	cid, _, ok := r.BasicAuth()
	if !ok || cid == "" {
		cid = "-"
	}
	return r.URL.Path + "|" + clientIP(r) + "|" + cid
}

// IPOnlyRateKey genera una clave basada solo en IP.
func IPOnlyRateKey(r *http.Request) string {
	return r.URL.Path + "|" + clientIP(r)
}

// WithRateLimit corta con 429 slow_down cuando se supera la ventana.
// Si el limiter falla, deja pasar el request.
func WithRateLimit(limiter rate.Limiter, keyFn RateKeyFunc) Middleware {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if keyFn == nil {
		keyFn = ClientRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error", logger.Op("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				secs := int(res.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httperrors.WriteError(w, httperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
