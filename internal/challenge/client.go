// Package challenge is the client of the challenge platform REST API: the
// challenge listings and details, registration, submission records, review
// artifacts and the submission upload.
package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/tcide/internal/config"
	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
	"git.home.luguber.info/inful/tcide/internal/logfields"
	"git.home.luguber.info/inful/tcide/internal/retry"
	"git.home.luguber.info/inful/tcide/internal/version"
)

// Client talks to the challenge platform. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration // bound on JSON calls and on awaiting response headers
	endpoints  config.APIConfig
	policy     retry.Policy
	userAgent  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client (timeouts, transports, test servers).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryPolicy replaces the retry policy for idempotent reads.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// NewClient builds a client for the endpoints in cfg. The configured timeout
// bounds each JSON call as a whole. Streamed uploads and downloads are only
// bounded while connecting and while awaiting the response headers, so their
// duration does not depend on the payload size.
func NewClient(cfg config.APIConfig, opts ...ClientOption) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Transport: newTransport(timeout)},
		timeout:    timeout,
		endpoints:  cfg,
		policy:     retry.FromConfig(cfg.Retry),
		userAgent:  version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// bounded derives the context of a single JSON call.
func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// expand substitutes {name} placeholders in an endpoint template with
// path-escaped values.
func expand(template string, values map[string]string) string {
	out := template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return out
}

// newRequest builds an authenticated request.
func (c *Client) newRequest(ctx context.Context, method, rawURL, token string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.APIError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", rawURL).
			Build()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// do executes req. Responses with a status of 400 or above are turned into
// classified errors; the caller closes the body of a successful response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("challenge API request failed").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	slog.Debug("Challenge API response",
		logfields.Method(req.Method),
		logfields.URL(req.URL.String()),
		logfields.Status(resp.StatusCode),
		logfields.Duration(time.Since(start)))

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError(req, resp)
	}
	return resp, nil
}

func statusError(req *http.Request, resp *http.Response) error {
	// Read limited body for diagnostics
	limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

	b := errors.APIError(fmt.Sprintf("challenge API error: %s", resp.Status))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		b = errors.AuthError(fmt.Sprintf("challenge API rejected the token: %s", resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		b = errors.NewError(errors.CategoryNotFound, fmt.Sprintf("challenge API resource not found: %s", resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests:
		b = b.WithRetry(errors.RetryRateLimit)
	case resp.StatusCode >= 500:
		b = b.Retryable()
	}
	return b.
		WithContext("status", resp.Status).
		WithContext("code", resp.StatusCode).
		WithContext("url", req.URL.String()).
		WithContext("response", bodyStr).
		Build()
}

// transient reports whether a read should be attempted again.
func transient(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.IsTransient()
}

// getJSON fetches rawURL and decodes the JSON body into out, retrying
// transient failures according to the client's policy.
func (c *Client) getJSON(ctx context.Context, rawURL, token string, out any) error {
	return c.policy.Do(ctx, transient, func(attempt int) error {
		if attempt > 0 {
			slog.Debug("Retrying challenge API request", logfields.URL(rawURL), logfields.Attempt(attempt))
		}
		actx, cancel := c.bounded(ctx)
		defer cancel()
		req, err := c.newRequest(actx, http.MethodGet, rawURL, token, nil)
		if err != nil {
			return err
		}
		resp, err := c.do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		return decode(resp, out)
	})
}

func decode(resp *http.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.APIError("failed to decode challenge API response").
			WithCause(err).
			WithContext("url", resp.Request.URL.String()).
			Build()
	}
	return nil
}
