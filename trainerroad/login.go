package trainerroad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// LoginOutcome is the decision taken on the raw credential POST response
type LoginOutcome int

const (
	OutcomeRejected LoginOutcome = iota
	OutcomeSuccess
)

func (o LoginOutcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "rejected"
}

// noSessionReason is used when a redirect arrives without the marker cookie
const noSessionReason = "login did not return a session"

// LoginResult is the outcome of a successful login
type LoginResult struct {
	// Bundle is the initial bundle merged with the cookies issued on success
	Bundle Bundle
	// Cookies is Bundle as serialized name=value pairs
	Cookies []string
	// RedirectTo is the Location the platform sent us to
	RedirectTo string
}

// ClassifyLoginResponse decides the login outcome from the raw POST response.
// The platform re-renders the login page (200) on failure and redirects away
// from it on success; a redirect that still points at the login path is a failure.
func ClassifyLoginResponse(status int, location, loginPath string) LoginOutcome {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		if location == "" {
			return OutcomeRejected
		}
		if strings.Contains(strings.ToLower(location), strings.ToLower(loginPath)) {
			return OutcomeRejected
		}
		return OutcomeSuccess
	default:
		return OutcomeRejected
	}
}

// Login performs the web login flow: fetch the login page, scrape the token,
// submit the credentials and harvest the session cookies. Nothing is persisted.
func (c *Client) Login(ctx context.Context, identity, secret string) (*LoginResult, error) {
	initial, token, err := c.doGetLogin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get login page: %w", err)
	}

	result, err := c.doPostLogin(ctx, initial, token, identity, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to post login: %w", err)
	}

	return result, nil
}

// doGetLogin retrieves the login page unauthenticated and returns the
// cookies issued before login together with the verification token
func (c *Client) doGetLogin(ctx context.Context) (Bundle, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(c.cfg.LoginPath, nil), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range commonHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("user-agent", c.cfg.UserAgent)

	resp, body, err := c.doRequest(req, c.cfg.LoginPath)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", newStatusError(resp.StatusCode, body, true)
	}

	initial := ParseSetCookies(resp.Header.Values("Set-Cookie"))

	token, err := c.extractor.ExtractToken(body)
	if err != nil {
		if errors.Is(err, ErrScrape) {
			return nil, "", scrapeError(c.cfg.TokenField)
		}
		return nil, "", err
	}

	c.logger.DebugContext(ctx, "login_page_fetched", "initial_cookies", initial.Names())
	return initial, token, nil
}

// doPostLogin submits the credentials with the token and the initial bundle.
// Redirects are not followed: the raw response is the decision criterion.
func (c *Client) doPostLogin(ctx context.Context, initial Bundle, token, identity, secret string) (*LoginResult, error) {
	data := url.Values{}
	data.Set(c.cfg.IdentityField, identity)
	data.Set(c.cfg.SecretField, secret)
	data.Set(c.cfg.TokenField, token)
	data.Set(c.cfg.RememberField, "true")

	loginURL := c.url(c.cfg.LoginPath, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range commonHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("user-agent", c.cfg.UserAgent)
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("cache-control", "max-age=0")
	req.Header.Set("origin", c.cfg.BaseURL)
	req.Header.Set("referer", loginURL)
	if len(initial) > 0 {
		req.Header.Set("cookie", initial.String())
	}

	resp, body, err := c.doRequest(req, c.cfg.LoginPath)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), timeNow())}
	case resp.StatusCode >= 500:
		return nil, newStatusError(resp.StatusCode, body, true)
	}

	location := resp.Header.Get("Location")
	if ClassifyLoginResponse(resp.StatusCode, location, c.cfg.LoginPath) == OutcomeRejected {
		reason := ExtractRejectionReason(body)
		c.logger.DebugContext(ctx, "login_rejected", "status", resp.StatusCode, "location", location, "reason", reason)
		return nil, &RejectedError{Reason: reason}
	}

	final := Merge(initial, ParseSetCookies(resp.Header.Values("Set-Cookie")))
	if !c.IsAuthenticated(final) {
		c.logger.DebugContext(ctx, "login_without_marker", "cookies", final.Names(), "marker", c.cfg.MarkerCookie)
		return nil, &RejectedError{Reason: noSessionReason}
	}

	c.logger.DebugContext(ctx, "login_succeeded", "location", location, "cookies", final.Names())
	return &LoginResult{
		Bundle:     final,
		Cookies:    final.Pairs(),
		RedirectTo: location,
	}, nil
}
