package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIBase   = "https://api.github.com"
	defaultUserAgent = "showcasectl"
	maxRetryAfter    = 30 * time.Second
)

// Client talks to the GitHub REST API for catalog files and release
// assets. Requests without a body are retried on transient failures.
type Client struct {
	token     string
	apiBase   string
	userAgent string
	http      *http.Client
	log       *zap.Logger
	retries   int
	backoff   time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (2 minute timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger logs each request at debug level and retries at warn.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetries sets how often a bodiless request is repeated after a 5xx
// or rate-limit response, and the base delay between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) { c.retries, c.backoff = n, backoff }
}

// New creates a Client for token against apiBase, the public API when
// empty. An empty token sends anonymous requests.
func New(token, apiBase string, opts ...Option) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	c := &Client{
		token:     token,
		apiBase:   strings.TrimRight(apiBase, "/"),
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 2 * time.Minute},
		log:       zap.NewNop(),
		retries:   2,
		backoff:   500 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) decorate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/vnd.github+json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

// do sends req. Responses worth repeating are retried when req has no
// body; the last response is returned unread either way.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.decorate(req)
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		c.log.Debug("github request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("took", time.Since(start)))

		wait, retry := c.retryAfter(resp, attempt)
		if !retry || req.Body != nil {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		c.log.Warn("github request will be retried",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("wait", wait))

		t := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			t.Stop()
			return nil, req.Context().Err()
		case <-t.C:
		}
	}
}

// retryAfter reports whether resp is transient and how long to wait.
// Secondary rate limits come back as 403 or 429 with Retry-After or an
// exhausted X-RateLimit-Remaining.
func (c *Client) retryAfter(resp *http.Response, attempt int) (time.Duration, bool) {
	if attempt >= c.retries {
		return 0, false
	}
	wait := c.backoff * time.Duration(attempt+1)
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return wait, true
	case http.StatusForbidden, http.StatusTooManyRequests:
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				return min(time.Duration(secs)*time.Second, maxRetryAfter), true
			}
		}
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return wait, true
		}
	}
	return 0, false
}

// doJSON sends body as JSON and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, url, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// url joins path segments onto the API base.
func (c *Client) url(parts ...string) string {
	return c.apiBase + "/" + strings.Join(parts, "/")
}

// StatusError is a non-2xx response. It unwraps to the matching sentinel
// (ErrNotFound, ErrConflict, ...) when there is one.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.kind != nil && e.Message == "" {
		return e.kind.Error()
	}
	if e.kind != nil {
		return fmt.Sprintf("%v (%s)", e.kind, e.Message)
	}
	return fmt.Sprintf("github API error %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// checkStatus returns a *StatusError for non-2xx responses. GitHub sends
// {"message": ...}; other bodies are kept as text.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = body.Message
	}

	e := &StatusError{Code: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case http.StatusForbidden:
		e.kind = ErrForbidden
	case http.StatusNotFound:
		e.kind = ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 for a stale blob sha, 422 when an asset name already exists.
		e.kind = ErrConflict
	}
	return e
}

// IsRateLimited reports whether err is a rate-limit rejection that
// survived the retries.
func IsRateLimited(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusTooManyRequests ||
		(se.Code == http.StatusForbidden && strings.Contains(strings.ToLower(se.Message), "rate limit"))
}
