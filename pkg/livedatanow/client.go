package livedatanow

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const (
	defaultBaseURL            = "https://api.livedatanow.com/api/online-order"
	defaultTimeout            = 15 * time.Second
	errorBodyReadLimit  int64 = 64 * 1024
	responseReadLimit   int64 = 8 * 1024 * 1024
	defaultPage               = 1
	defaultListLimit          = 50
	defaultModifierPage       = 10
)

var errInvalidBaseURL = errors.New("livedatanow base url must be absolute")

// Observer receives timing for every upstream round trip.
type Observer interface {
	ObserveUpstream(method, endpoint string, status int, elapsed time.Duration)
}

// Client talks to the LiveDataNow online-order API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	observer   Observer
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithObserver registers a timing observer, usually the prometheus upstream metrics.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds the upstream client from config.
func NewClient(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	parsed, err := url.Parse(client.baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errInvalidBaseURL
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")

	return client, nil
}

// BaseURL returns the normalized upstream root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

func (c *Client) buildURL(path, rawQuery string) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

func (c *Client) observe(method, path string, status int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(method, EndpointLabel(path), status, c.now().Sub(started))
}

var namedEndpoints = map[string]struct{}{
	"auth/login":           {},
	"auth/verify-otp":      {},
	"store/by-subdomain":   {},
	"order/place-order":    {},
	"order/my-orders":      {},
	"payment/make-payment": {},
}

// EndpointLabel reduces a request path to a bounded metric label.
func EndpointLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "root"
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) > 1 {
		pair := segments[0] + "/" + segments[1]
		if _, ok := namedEndpoints[pair]; ok {
			return pair
		}
	}
	return segments[0]
}

func bearer(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
