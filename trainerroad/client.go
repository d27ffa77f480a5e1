package trainerroad

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LevelTrace is below slog.LevelDebug and enables header and body logging
const LevelTrace = slog.LevelDebug - 4

const (
	// maxBodySize bounds how much of any upstream response is read into memory
	maxBodySize = 16 << 20
	// logPreviewSize bounds response body previews in trace logs
	logPreviewSize = 512
	// defaultRetryAfter is suggested when a 429 carries no usable Retry-After
	defaultRetryAfter = 60 * time.Second
)

var (
	// commonHeaders make document requests look like a regular browser navigation
	commonHeaders = map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"accept-language":           "en-GB,en;q=0.9,en-US;q=0.8",
		"sec-ch-ua":                 "\"Google Chrome\";v=\"137\", \"Chromium\";v=\"137\", \"Not/A)Brand\";v=\"24\"",
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        "\"macOS\"",
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "same-origin",
		"sec-fetch-user":            "?1",
		"upgrade-insecure-requests": "1",
	}

	// apiHeaders are sent with calls against the internal JSON endpoints
	apiHeaders = map[string]string{
		"accept":           "application/json, text/plain, */*",
		"accept-language":  "en-GB,en;q=0.9,en-US;q=0.8",
		"sec-fetch-dest":   "empty",
		"sec-fetch-mode":   "cors",
		"sec-fetch-site":   "same-origin",
		"x-requested-with": "XMLHttpRequest",
	}

	// redactedHeaders never have their values logged
	redactedHeaders = map[string]bool{
		"Cookie":     true,
		"Set-Cookie": true,
	}
)

// timeNow is a variable for testability
var timeNow = time.Now

// Response is a successful (2xx) upstream response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client talks to the platform's web login and internal endpoints.
// It holds no session state: the cookie bundle is passed to every call.
type Client struct {
	httpClient *http.Client
	cfg        Config
	extractor  TokenExtractor
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. with a test server's
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// WithLogger sets the logger used for request logging
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenExtractor swaps the login page scraping strategy
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(c *Client) {
		if extractor != nil {
			c.extractor = extractor
		}
	}
}

// New creates a new platform client
func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // Don't follow redirects
			},
		},
		cfg:       cfg,
		extractor: NewRegexpExtractor(cfg.TokenField),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.cfg
}

// IsAuthenticated reports whether the bundle carries this platform's marker cookie
func (c *Client) IsAuthenticated(b Bundle) bool {
	return IsAuthenticated(b, c.cfg.MarkerCookie)
}

// url joins the base URL, a path and an optional query
func (c *Client) url(path string, query url.Values) string {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// logRequest logs the request details at trace level
func (c *Client) logRequest(ctx context.Context, req *http.Request, body []byte) {
	if !c.logger.Enabled(ctx, LevelTrace) {
		return
	}
	c.logger.Log(ctx, LevelTrace, "request_headers", "headers", headerAttrs(req.Header))
	if len(body) > 0 && req.Header.Get("content-type") == "application/json" {
		c.logger.Log(ctx, LevelTrace, "request_body", "body", truncate(string(body), logPreviewSize))
	}
}

// logResponse logs the response details at trace level
func (c *Client) logResponse(ctx context.Context, resp *http.Response, body []byte) {
	if !c.logger.Enabled(ctx, LevelTrace) {
		return
	}
	c.logger.Log(ctx, LevelTrace, "response_headers", "headers", headerAttrs(resp.Header))
	if len(body) > 0 {
		c.logger.Log(ctx, LevelTrace, "response_body_preview", "body", truncate(string(body), logPreviewSize))
	}
}

// headerAttrs flattens headers for logging with cookie values redacted
func headerAttrs(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = fmt.Sprintf("[%d redacted]", len(v))
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// doRequest performs an HTTP request with logging, metrics and timeout classification.
// The whole body is read (bounded) and the response body is already closed on return.
func (c *Client) doRequest(req *http.Request, endpoint string) (*http.Response, []byte, error) {
	ctx := req.Context()
	c.logger.DebugContext(ctx, "upstream_request", "method", req.Method, "url", req.URL.String())

	var bodyBytes []byte
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			bodyBytes, _ = io.ReadAll(rc)
			rc.Close()
		}
	}
	c.logRequest(ctx, req, bodyBytes)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(endpoint, outcomeForError(err), time.Since(start))
		return nil, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		observeRequest(endpoint, outcomeForError(err), time.Since(start))
		return nil, nil, classifyTransportError(fmt.Errorf("failed to read response body: %w", err))
	}
	observeRequest(endpoint, outcomeForStatus(resp.StatusCode), time.Since(start))

	c.logger.DebugContext(ctx, "upstream_response", "status", resp.StatusCode, "url", req.URL.String(), "elapsed", time.Since(start))
	c.logResponse(ctx, resp, respBody)

	return resp, respBody, nil
}

// classifyTransportError separates time budget expiry from other network failures
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Call performs an authenticated call against an internal endpoint, replaying the bundle.
// body, when non-nil, is sent as JSON. No retries happen here.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body any, bundle Bundle) (*Response, error) {
	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range apiHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("user-agent", c.cfg.UserAgent)
	req.Header.Set("referer", c.cfg.BaseURL+"/app")
	req.Header.Set("origin", c.cfg.BaseURL)
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}
	if len(bundle) > 0 {
		req.Header.Set("cookie", bundle.String())
	}

	resp, respBody, err := c.doRequest(req, path)
	if err != nil {
		return nil, err
	}
	return c.classify(resp, respBody)
}

// classify maps an HTTP outcome of an authenticated call onto the error taxonomy
func (c *Client) classify(resp *http.Response, body []byte) (*Response, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), timeNow())}
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && c.isLoginLocation(resp.Header.Get("Location")):
		// An expired session is bounced to the login page
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrRedirectedToLogin)
	default:
		return nil, newStatusError(resp.StatusCode, body, false)
	}
}

// isLoginLocation reports whether a redirect target points at the login page
func (c *Client) isLoginLocation(location string) bool {
	return location != "" && strings.Contains(strings.ToLower(location), strings.ToLower(c.cfg.LoginPath))
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
		return 0
	}
	return defaultRetryAfter
}
