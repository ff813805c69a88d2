// Package backend wraps outbound calls to the course-management API.
//
// Every request carries JSON headers and, when the injected TokenSource yields
// one, a bearer token. A 401 from any endpoint invokes the OnUnauthorized hook
// before the typed error is returned, so a rejected token always ends the
// console session no matter which resource produced it.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/middleware/requestid"
)

const maxErrorBody = 64 << 10

// ErrNoDetail is wrapped by errors whose response body carried no message.
var ErrNoDetail = errors.New("backend response carried no message")

// TokenSource returns the bearer token for the session bound to ctx.
type TokenSource func(ctx context.Context) string

// UnauthorizedHook is invoked once for every 401 response.
type UnauthorizedHook func(ctx context.Context)

// Observer receives timing for each backend call.
type Observer interface {
	ObserveBackendCall(method, route string, status int, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Token          TokenSource
	OnUnauthorized UnauthorizedHook
	Observer       Observer
	Logger         *zap.Logger
}

// Client issues JSON requests against a fixed base URL.
type Client struct {
	baseURL        string
	http           *http.Client
	token          TokenSource
	onUnauthorized UnauthorizedHook
	observer       Observer
	logger         *zap.Logger
}

// New builds a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend: invalid base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:        base,
		http:           httpClient,
		token:          cfg.Token,
		onUnauthorized: cfg.OnUnauthorized,
		observer:       cfg.Observer,
		logger:         logger,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, query, body, out)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, query, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do performs a request. A nil body sends no payload; a nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.HeaderKey, reqID)
	}
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	route := routeLabel(path)
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, route, http.StatusServiceUnavailable, duration)
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("route", route),
			zap.Duration("latency", duration),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	defer resp.Body.Close()
	c.observe(method, route, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.failure(ctx, method, route, resp)
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration))

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "failed to read backend response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, "unexpected backend response")
	}
	return nil
}

func (c *Client) failure(ctx context.Context, method, route string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := errorMessage(raw)
	detailed := message != ""
	if !detailed {
		message = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Info("backend rejected session token",
			zap.String("method", method),
			zap.String("route", route))
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
	} else {
		c.logger.Warn("backend returned error",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
	}
	appErr := appErrors.FromStatus(resp.StatusCode, message)
	if !detailed {
		appErr.Err = ErrNoDetail
	}
	return appErr
}

func (c *Client) observe(method, route string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(method, route, status, duration)
	}
}

// errorMessage extracts a human message from a backend error body.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		return body.Error
	}
	if raw[0] == '{' || raw[0] == '[' || raw[0] == '<' {
		return ""
	}
	text := string(raw)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// routeLabel collapses numeric path segments to keep metric cardinality bounded.
func routeLabel(path string) string {
	path = "/" + strings.TrimLeft(path, "/")
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}
