package httpx

import (
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

var (
	idOnce    sync.Once
	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy
)

// NewRequestID returns a lexicographically sortable ULID string. Safe for
// concurrent use.
func NewRequestID() string {
	idOnce.Do(func() {
		idEntropy = ulid.Monotonic(rand.Reader, 0)
	})

	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), idEntropy).String()
}

// RequestID stamps outbound requests with an X-Request-ID header unless the
// caller already set one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) == "" {
				// RoundTrippers must not mutate the caller's request.
				r = r.Clone(r.Context())
				r.Header.Set(HeaderRequestID, NewRequestID())
			}
			return next.RoundTrip(r)
		})
	}
}
