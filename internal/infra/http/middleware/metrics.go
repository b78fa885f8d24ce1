package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/allayhq/api/internal/metrics"
)

// Metrics records request count and duration per method and route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath collapses identifier segments so route cardinality stays
// bounded. UUIDs, Slack timestamps and invitation tokens all become :id.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	if len(seg) == 36 && strings.Count(seg, "-") == 4 {
		return true
	}
	// Slack message timestamps: "1700000000.000100"
	if dot := strings.IndexByte(seg, '.'); dot > 0 {
		if isDigits(seg[:dot]) && isDigits(seg[dot+1:]) {
			return true
		}
	}
	// Opaque tokens (invitation tokens are 64 hex chars)
	return len(seg) >= 32 && !strings.ContainsAny(seg, ".-")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
