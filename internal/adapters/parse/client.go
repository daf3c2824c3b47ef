// Package parse is the HTTP transport to the remote event catalog: class
// queries and cloud function calls against a Parse-compatible server.
package parse

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

	"eventcatalog/internal/domain"
)

// Header names understood by the catalog server.
const (
	HeaderApplicationID = "X-Parse-Application-Id"
	HeaderClientKey     = "X-Parse-Client-Key"
	HeaderSessionToken  = "X-Parse-Session-Token"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// DefaultMaxResponseBytes bounds the size of a catalog response body.
const DefaultMaxResponseBytes = 16 << 20

// Config identifies the catalog server and the client application.
type Config struct {
	BaseURL       string
	ApplicationID string
	ClientKey     string
	Timeout       time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithMaxResponseBytes sets the largest response body the client reads.
func WithMaxResponseBytes(n int64) Option {
	return func(cl *Client) { cl.maxBody = n }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// Client implements domain.RemoteCatalog over HTTP.
type Client struct {
	baseURL string
	appID   string
	key     string
	http    *http.Client
	logger  *slog.Logger
	maxBody int64
}

// NewClient returns a catalog client. The timeout bounds every request.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appID:   cfg.ApplicationID,
		key:     cfg.ClientKey,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
		maxBody: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classEnvelope struct {
	Results *[]json.RawMessage `json:"results"`
	Count   *int               `json:"count"`
}

// QueryClass runs q against the class and returns its results.
func (c *Client) QueryClass(ctx context.Context, className string, q domain.ClassQuery) (domain.ClassResult, error) {
	values, err := q.Values()
	if err != nil {
		return domain.ClassResult{}, &domain.TransportError{Kind: domain.TransportInvalidRequest, Err: err}
	}
	endpoint := c.baseURL + "/classes/" + url.PathEscape(className) + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ClassResult{}, &domain.TransportError{Kind: domain.TransportInvalidRequest, Err: err}
	}
	body, err := c.do(req, q.SessionToken)
	if err != nil {
		return domain.ClassResult{}, err
	}

	var env classEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.ClassResult{}, &domain.TransportError{Kind: domain.TransportJSONDecoding, Err: err}
	}
	if q.Count && env.Count == nil {
		return domain.ClassResult{}, &domain.TransportError{Kind: domain.TransportInvalidResponse, Err: errors.New("count missing from response")}
	}
	if !q.Count && env.Results == nil {
		return domain.ClassResult{}, &domain.TransportError{Kind: domain.TransportInvalidResponse, Err: errors.New("results missing from response")}
	}
	result := domain.ClassResult{Count: env.Count}
	if env.Results != nil {
		result.Results = *env.Results
	}
	return result, nil
}

// CallFunction invokes the named cloud function with params encoded as the
// JSON request body and returns the raw response body.
func (c *Client) CallFunction(ctx context.Context, name string, params any, sessionToken string) (json.RawMessage, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportInvalidRequest, Err: err}
	}
	endpoint := c.baseURL + "/functions/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req, sessionToken)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.TransportError{Kind: domain.TransportJSONDecoding, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}

// do sends req with the catalog headers and returns the body of a 2xx answer.
func (c *Client) do(req *http.Request, sessionToken string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderApplicationID, c.appID)
	if c.key != "" {
		req.Header.Set(HeaderClientKey, c.key)
	}
	if sessionToken != "" {
		req.Header.Set(HeaderSessionToken, sessionToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, classify(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, classify(req.Context(), err)
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Warn("catalog response too large", "method", req.Method, "path", req.URL.Path, "limit_bytes", c.maxBody)
		return nil, &domain.TransportError{
			Kind: domain.TransportInvalidResponse,
			Err:  fmt.Errorf("response body exceeds %d bytes", c.maxBody),
		}
	}
	c.logger.Debug("catalog request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{Kind: domain.TransportDataLoading, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// classify maps a failed round trip to a transport error. Caller cancellation
// is returned unchanged.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("catalog request: %w", context.Canceled)
	}
	return &domain.TransportError{Kind: domain.TransportNoConnectivity, Err: err}
}
