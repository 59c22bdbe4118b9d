// Package transport is the single HTTP client used to reach the todo API.
//
// Outgoing requests pick up the stored credential as a bearer header.
// Responses are screened centrally: a 401 clears the session store and fires
// the unauthorized handler, a 403 fires the forbidden handler and leaves the
// session alone, and every other failure reaches the caller unchanged.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"todo/internal/session"
)

// ForbiddenNotice is the message handed to the forbidden handler.
const ForbiddenNotice = "You are not authorized to access this resource"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client sends requests to the todo API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	store          session.Store
	logger         *slog.Logger
	onUnauthorized func()
	onForbidden    func(notice string)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped,
// not replaced; the caller's client is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUnauthorizedHandler sets the function called after a 401 has cleared
// the session. It plays the part of sending the user back to login.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithForbiddenHandler sets the function called with a user-facing notice
// when a request is rejected with 403.
func WithForbiddenHandler(fn func(notice string)) Option {
	return func(c *Client) { c.onForbidden = fn }
}

// New creates a client for baseURL that authenticates from store.
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("transport: nil session store")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		store:      store,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}

	hc := *c.httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &bearerTransport{base: base, source: session.TokenSource(store)}
	c.httpClient = &hc

	return c, nil
}

// Body is a request payload.
type Body interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct{ v any }

func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

type formBody struct{ v url.Values }

func (b formBody) encode() (io.Reader, string, error) {
	return strings.NewReader(b.v.Encode()), "application/x-www-form-urlencoded", nil
}

// JSON encodes v as a JSON request body.
func JSON(v any) Body { return jsonBody{v: v} }

// Form encodes v as an application/x-www-form-urlencoded body.
func Form(v url.Values) Body { return formBody{v: v} }

// Do sends a request and decodes a successful JSON response into out (which
// may be nil). Failures with a status of 400 or above come back as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body Body, out any) error {
	var reader io.Reader
	var contentType string
	if body != nil {
		var err error
		reader, contentType, err = body.encode()
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		return c.intercept(resp, requestID)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// intercept turns a failed response into an APIError, tearing down the
// session on 401 and raising the notice on 403.
func (c *Client) intercept(resp *http.Response, requestID string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(data),
		RequestID:  requestID,
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("failed to clear rejected session", "error", err)
		}
		c.logger.Debug("session rejected, credential cleared", "request_id", requestID)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case http.StatusForbidden:
		if c.onForbidden != nil {
			c.onForbidden(ForbiddenNotice)
		}
	}
	return apiErr
}

// bearerTransport attaches the stored credential to every outgoing request.
// With no stored credential the request goes out unauthenticated.
type bearerTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.Token()
	if errors.Is(err, session.ErrNoSession) {
		return t.base.RoundTrip(req)
	}
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	r2 := req.Clone(req.Context())
	tok.SetAuthHeader(r2)
	return t.base.RoundTrip(r2)
}
