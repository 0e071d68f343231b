package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/nidhal-dev/authfront/internal/tokens"
)

// RequestIDHeader carries a per-request ULID so client and API logs line up
const RequestIDHeader = "X-Request-ID"

// ErrSessionExpired is returned when the refresh token was rejected. By the
// time a caller sees it, the tokens are cleared, the session is logged out and
// the router has been sent to the login page.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx response from the API
type APIError struct {
	Method     string
	Path       string
	StatusCode  int
	ContentType string
	Body        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Config holds the client settings
type Config struct {
	BaseURL        string        // API root including the version prefix
	Timeout        time.Duration // Whole-request timeout, including a refresh and retry
	RefreshTimeout time.Duration // Timeout for the refresh round-trip alone
	Transport      http.RoundTripper
}

// Client represents an HTTP client for the API. It carries a default bearer
// token seeded from the token store at construction time.
type Client struct {
	baseURL    string
	httpClient *http.Client
	base       http.RoundTripper
	cfg        Config
	tokens     *tokens.Store
	log        zerolog.Logger

	mu           sync.RWMutex
	defaultToken string
}

// Option configures a Client
type Option func(*Client)

// WithRefresh installs the refresh interceptor. Without it, an expired
// access token surfaces as a plain 401 APIError.
func WithRefresh(sessions SessionResetter, nav Navigator) Option {
	return func(c *Client) {
		c.httpClient.Transport = &RefreshTransport{
			Base:        c.base,
			RefreshURL:  c.baseURL + RefreshPath,
			Timeout:     c.cfg.RefreshTimeout,
			Tokens:      c.tokens,
			Sessions:    sessions,
			Navigator:   nav,
			OnRefreshed: c.SetDefaultToken,
			Log:         c.log,
		}
	}
}

// New creates a new API client
func New(ctx context.Context, cfg Config, store *tokens.Store, log zerolog.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("API base URL is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	token, err := store.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load access token: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: base,
			// The API answers with JSON or text; a redirect is a result, not a hop
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base:         base,
		cfg:          cfg,
		tokens:       store,
		log:          log.With().Str("component", "client").Logger(),
		defaultToken: token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root requests are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DefaultToken returns the token sent with requests that carry no
// Authorization header of their own
func (c *Client) DefaultToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultToken
}

// SetDefaultToken replaces the default bearer token. Requests already in
// flight keep the header they were sent with.
func (c *Client) SetDefaultToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultToken = token
}

type publicKey struct{}

// withoutAuth marks a request context so Do sends no default bearer token
func withoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey{}, true)
}

func isPublic(ctx context.Context) bool {
	v, _ := ctx.Value(publicKey{}).(bool)
	return v
}

// Do sends a request. The default bearer token is applied unless the request
// already has an Authorization header (a per-request override).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if req.Header.Get("Authorization") == "" && !isPublic(req.Context()) {
		if token := c.DefaultToken(); token != "" {
			(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)
		}
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, ulid.Make().String())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	event := c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("HTTP request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("HTTP request")
	return resp, nil
}

// NewRequest builds a request against the API root. A non-nil body is JSON
// encoded; the request can be replayed by the refresh interceptor.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Response is a fully read API response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Request sends a raw request and reads the whole response. Non-2xx
// statuses are returned as *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Method:      method,
			Path:        req.URL.Path,
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        string(data),
		}
	}
	return &Response{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: data}, nil
}

// send issues a JSON request and decodes a JSON response into out, or
// returns the text body when out is nil
func (c *Client) send(ctx context.Context, method, path string, in, out any, okStatus ...int) (string, error) {
	req, err := c.NewRequest(ctx, method, path, in)
	if err != nil {
		return "", err
	}
	if out != nil {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode, okStatus) {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			Method:      method,
			Path:        req.URL.Path,
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        string(body),
		}
	}

	if out == nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
		return string(body), nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return "", nil
}

func statusOK(code int, accepted []int) bool {
	if len(accepted) == 0 {
		return code >= 200 && code < 300
	}
	for _, c := range accepted {
		if code == c {
			return true
		}
	}
	return false
}
