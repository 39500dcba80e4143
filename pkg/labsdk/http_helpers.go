package labsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// send decorates and executes r. Any non-2xx response or transport failure
// is classified, surfaced once, and returned as an *APIError.
func (c *Client) send(ctx context.Context, r *Request) (*http.Response, error) {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		c.notifier().Error(msgBadRequestConfig)
		return nil, &APIError{Kind: KindUnknown, Notice: msgBadRequestConfig, Err: err}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.transportFailure(ctx, r, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, c.statusFailure(ctx, r, resp.StatusCode, body)
	}

	return resp, nil
}

// newHTTPRequest builds the outbound request: bearer token when the session
// holds one, JSON body encoding, and the cache-busting stamp on reads.
func (c *Client) newHTTPRequest(ctx context.Context, r *Request) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	query := u.Query()
	for k, vs := range r.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	if r.Method == http.MethodGet {
		query.Set(cacheBustParam, strconv.FormatInt(c.cacheBuster(), 10))
	}
	u.RawQuery = query.Encode()

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

func encodeBody(r *Request) (io.Reader, string, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, r.ContentType, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(raw), "application/json;charset=UTF-8", nil
	}
}

// cacheBuster returns the current time in milliseconds, bumped past the
// previous stamp so two reads in the same millisecond still differ.
func (c *Client) cacheBuster() int64 {
	now := c.now().UnixMilli()
	for {
		last := c.lastStamp.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if c.lastStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}
