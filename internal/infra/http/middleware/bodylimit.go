package middleware

import "net/http"

// DefaultMaxBodySize caps request bodies at 1MB, comfortably above the
// largest Slack event payload.
const DefaultMaxBodySize = 1 << 20

// BodyLimit fails reads past maxBytes, surfacing as a 413 when the
// handler decodes the body. Bodyless methods pass through untouched.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
