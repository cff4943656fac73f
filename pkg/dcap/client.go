package dcap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/livedatanow"
)

const (
	defaultURL              = "https://pay-cert.dcap.com/v2/AcquireInitialApiKey"
	defaultTimeout          = 15 * time.Second
	responseReadLimit int64 = 1024 * 1024
	gatewayEndpoint         = "dcap/acquire-initial-api-key"
)

var errCredentialsRequired = errors.New("dcap username and password are required")

// Client acquires initial API keys from the DCAP payment gateway.
type Client struct {
	httpClient *http.Client
	url        string
	username   string
	password   string
	observer   livedatanow.Observer
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

// WithObserver registers a timing observer.
func WithObserver(observer livedatanow.Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds the gateway client. Missing credentials are reported on use.
func NewClient(cfg config.PaymentConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        strings.TrimSpace(cfg.DCAPURL),
		username:   strings.TrimSpace(cfg.DCAPUsername),
		password:   strings.TrimSpace(cfg.DCAPPassword),
	}
	if client.url == "" {
		client.url = defaultURL
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.username != "" && c.password != ""
}

// AcquireInitialAPIKey calls the gateway with HTTP Basic credentials.
// The gateway answer is returned whatever its status; only transport failures are errors.
func (c *Client) AcquireInitialAPIKey(ctx context.Context) (*livedatanow.Response, error) {
	if !c.Configured() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errCredentialsRequired, "payment gateway not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(0, started)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	c.observe(resp.StatusCode, started)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read payment gateway response")
	}

	text := http.StatusText(resp.StatusCode)
	if parts := strings.SplitN(resp.Status, " ", 2); len(parts) == 2 && parts[1] != "" {
		text = parts[1]
	}

	return &livedatanow.Response{
		Status:     resp.StatusCode,
		StatusText: text,
		Body:       body,
		Header:     resp.Header.Clone(),
	}, nil
}

func (c *Client) observe(status int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(http.MethodPost, gatewayEndpoint, status, time.Since(started))
}
