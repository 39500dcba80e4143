package labsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// statusFailure maps a non-2xx response to exactly one notice. No retries.
func (c *Client) statusFailure(ctx context.Context, r *Request, status int, body []byte) error {
	message := backendMessage(body)

	var notice string
	switch status {
	case http.StatusBadRequest:
		notice = firstNonEmpty(message, msgInvalidParams)
	case http.StatusUnauthorized:
		switch r.Path {
		case PathLogin:
			notice = firstNonEmpty(message, msgBadCredentials)
		case PathLogout:
			// Already logged out as far as the backend is concerned.
		default:
			c.startRecovery(ctx)
		}
	case http.StatusForbidden:
		notice = msgForbidden
	case http.StatusNotFound:
		notice = msgNotFound
	case http.StatusInternalServerError:
		notice = msgInternalError
	case http.StatusBadGateway:
		notice = msgBadGateway
	case http.StatusServiceUnavailable:
		notice = msgUnavailable
	case http.StatusGatewayTimeout:
		notice = msgGatewayTimeout
	default:
		notice = firstNonEmpty(message, fmt.Sprintf(msgStatusFailed, status))
	}

	if notice != "" {
		c.notifier().Error(notice)
	}

	slogx.FromContext(ctx).Debug("api call failed",
		"method", r.Method,
		"path", r.Path,
		"status", status,
		"message", message,
	)

	return &APIError{
		Kind:       KindHTTP,
		StatusCode: status,
		Message:    message,
		Notice:     notice,
		Body:       body,
	}
}

// transportFailure classifies a call that produced no usable response.
func (c *Client) transportFailure(ctx context.Context, r *Request, err error) error {
	kind := classifyTransport(err)

	var notice string
	switch kind {
	case KindTimeout:
		notice = msgTimeout
	case KindNetwork:
		notice = msgNetwork
	default:
		notice = msgTryLater
	}
	c.notifier().Error(notice)

	slogx.FromContext(ctx).Warn("api call got no response",
		"method", r.Method,
		"path", r.Path,
		"kind", kind,
		"err", err,
	)

	return &APIError{Kind: kind, Notice: notice, Err: err}
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindNetwork
	}
	return KindUnknown
}

// backendMessage pulls "message" out of an error body, if it is JSON.
func backendMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	return scalarString(fields["message"])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
