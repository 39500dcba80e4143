package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport logs every outbound request at debug level, and transport
// failures at warn. The X-Request-ID header, when present, becomes req_id.
func Transport(base *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			logger := base.With(
				"req_id", r.Header.Get("X-Request-ID"),
				"method", r.Method,
				"path", r.URL.Path,
			)

			resp, err := next.RoundTrip(r)
			duration := time.Since(start).Milliseconds()
			if err != nil {
				logger.Warn("api_request_failed", "duration_ms", duration, "err", err)
				return nil, err
			}

			logger.Debug("api_request",
				"status", resp.StatusCode,
				"duration_ms", duration,
			)
			return resp, nil
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
