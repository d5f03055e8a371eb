// internal/apiclient/client.go
//
// Client is the one place the console talks HTTP. It carries the session
// cookie jar, stamps request ids and turns non-2xx responses into *Error.

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// CSRFCookie is the cookie the API sets with the CSRF token.
	CSRFCookie = "csrf_token"
	// CSRFHeader echoes the CSRF token on state-changing calls.
	CSRFHeader = "x-csrf-token"
	// RequestIDHeader correlates console logs with server logs.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Client issues JSON requests against the planning API.
type Client struct {
	base   *url.URL
	origin string
	http   *http.Client
	logger logrus.FieldLogger
	newID  func() string
}

// Option customizes client construction.
type Option func(*Client) error

// WithHTTPClient replaces the underlying http.Client. Its jar is replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.http = hc
		}
		return nil
	}
}

// WithLogger routes request logs to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l.WithField("component", "apiclient")
		}
		return nil
	}
}

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.http.Timeout = d
		}
		return nil
	}
}

// WithOrigin sets the web origin used to build user-facing links such as
// registration URLs. Defaults to the API base URL's scheme and host.
func WithOrigin(origin string) Option {
	return func(c *Client) error {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			c.origin = trimmed
		}
		return nil
	}
}

// WithSessionCookie seeds the jar with an existing session cookie.
func WithSessionCookie(name, value string) Option {
	return func(c *Client) error {
		name = strings.TrimSpace(name)
		if name == "" || value == "" {
			return nil
		}
		c.ensureJar()
		c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
		return nil
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) error {
		if gen != nil {
			c.newID = gen
		}
		return nil
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("apiclient: base url is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", trimmed)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	c := &Client{
		base:   base,
		origin: base.Scheme + "://" + base.Host,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logrus.New().WithField("component", "apiclient"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.ensureJar()
	return c, nil
}

func (c *Client) ensureJar() {
	if c.http.Jar != nil {
		return
	}
	// cookiejar.New only fails on a bad PublicSuffixList; nil never fails.
	jar, _ := cookiejar.New(nil)
	c.http.Jar = jar
}

// Origin returns the web origin, without a trailing slash.
func (c *Client) Origin() string {
	return c.origin
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Cookie returns the value of the named cookie for the API host.
func (c *Client) Cookie(name string) (string, bool) {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

type requestConfig struct {
	csrf   bool
	query  url.Values
	header http.Header
}

// RequestOption customizes a single request.
type RequestOption func(*requestConfig)

// WithCSRF echoes the csrf_token cookie as the x-csrf-token header.
func WithCSRF() RequestOption {
	return func(rc *requestConfig) { rc.csrf = true }
}

// WithQuery appends query parameters.
func WithQuery(key, value string) RequestOption {
	return func(rc *requestConfig) {
		if rc.query == nil {
			rc.query = url.Values{}
		}
		rc.query.Add(key, value)
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) {
		if rc.header == nil {
			rc.header = http.Header{}
		}
		rc.header.Set(key, value)
	}
}

// Do sends method+path with body JSON-encoded (nil sends no body) and decodes
// a 2xx JSON response into out (nil discards it). Non-2xx returns *Error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var rc requestConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&rc)
		}
	}
	target := c.resolve(path, rc.query)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := c.newID()
	req.Header.Set(RequestIDHeader, reqID)
	for key, values := range rc.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if rc.csrf {
		if token, ok := c.Cookie(CSRFCookie); ok {
			req.Header.Set(CSRFHeader, token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method":     method,
			"path":       path,
			"request_id": reqID,
		}).WithError(err).Warn("request failed")
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	fields := logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
		"request_id":  reqID,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := newError(method, path, resp.StatusCode, raw)
		c.logger.WithFields(fields).WithField("message", apiErr.Message).Warn("request rejected")
		return apiErr
	}
	c.logger.WithFields(fields).Debug("request ok")

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		extra, _ := url.ParseQuery(path[idx+1:])
		path = path[:idx]
		if query == nil {
			query = url.Values{}
		}
		for k, vs := range extra {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
	}
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

// Get fetches path into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post creates at path.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Patch partially updates path.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

// Put replaces path.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete removes path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

// Path joins escaped segments onto an /api prefix: Path("users", id, "pto").
func Path(segments ...string) string {
	var b strings.Builder
	b.WriteString("/api")
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}
