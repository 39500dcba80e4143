package labsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/labdesk/pkg/httpx"
)

// Backend endpoints the pipeline and session treat specially.
const (
	PathLogin          = "/auth/login"
	PathLogout         = "/auth/logout"
	PathRegister       = "/auth/register"
	PathProfile        = "/auth/profile"
	PathChangePassword = "/auth/change-password"
)

// LoginRoute is the console route the session recovery flow lands on.
const LoginRoute = "/login"

// DefaultTimeout bounds every call made by a Client built with NewClient.
const DefaultTimeout = 10 * time.Second

// cacheBustParam is added to every GET so intermediaries never serve a
// stale read.
const cacheBustParam = "_t"

// Client is the request pipeline: the single choke point for every call to
// the backend. It attaches the session token, classifies failures, drives
// the UI ports and starts session recovery when the token expires.
type Client struct {
	// BaseURL is the backend API root, e.g. "http://localhost:5000/api".
	BaseURL    string
	HTTPClient *http.Client

	// UI ports. Nil ports are no-ops.
	Notifier  Notifier
	Progress  Progress
	Prompter  Prompter
	Navigator Navigator

	session   *Session
	recovery  recovery
	lastStamp atomic.Int64
	clock     func() time.Time
}

// NewClient creates a pipeline against baseURL with the default timeout and
// a transport that stamps request ids.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: httpx.Chain(http.DefaultTransport, httpx.RequestID()),
		},
		clock: time.Now,
	}
}

// Session returns the session attached to this client, if any.
func (c *Client) Session() *Session {
	return c.session
}

// Request describes one call through the pipeline.
type Request struct {
	Method string
	// Path is relative to BaseURL, e.g. "/laboratories/3".
	Path  string
	Query url.Values
	// Body is sent as JSON unless it is an io.Reader, which is sent as-is
	// with ContentType. A nil Body sends no body.
	Body        any
	ContentType string
}

// Do sends r and normalizes the response envelope.
func (c *Client) Do(ctx context.Context, r *Request) (*Result, error) {
	c.progress().Start()
	defer c.progress().Done()

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportFailure(ctx, r, err)
	}

	result, err := Normalize(body)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			apiErr.StatusCode = resp.StatusCode
			c.notifier().Error(apiErr.Notice)
		}
		return nil, err
	}
	return result, nil
}

// Download performs a binary GET. The response bypasses envelope
// normalization and is returned untouched; the caller must close its body.
// Non-2xx responses and transport failures are classified like any call.
func (c *Client) Download(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	c.progress().Start()
	defer c.progress().Done()

	return c.send(ctx, &Request{Method: http.MethodGet, Path: path, Query: params})
}

// Get issues a GET with query params.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: params})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete issues a DELETE with query params.
func (c *Client) Delete(ctx context.Context, path string, params url.Values) (*Result, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, Query: params})
}

// Upload posts a multipart form holding one file under field plus any extra
// text fields.
func (c *Client) Upload(
	ctx context.Context,
	path, field, filename string,
	file io.Reader,
	fields map[string]string,
) (*Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        &buf,
		ContentType: mw.FormDataContentType(),
	})
}

// WaitRecovery blocks until no session recovery flow is running or ctx ends.
func (c *Client) WaitRecovery(ctx context.Context) error {
	return c.recovery.wait(ctx)
}

func (c *Client) notifier() Notifier {
	if c.Notifier == nil {
		return nopUI{}
	}
	return c.Notifier
}

func (c *Client) progress() Progress {
	if c.Progress == nil {
		return nopUI{}
	}
	return c.Progress
}

func (c *Client) prompter() Prompter {
	if c.Prompter == nil {
		return nopUI{}
	}
	return c.Prompter
}

func (c *Client) now() time.Time {
	if c.clock == nil {
		return time.Now()
	}
	return c.clock()
}
