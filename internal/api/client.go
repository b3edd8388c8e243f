package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/auth"
)

// Client provides access to the alerts REST API.
type Client struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *http.Client
	logger     *zap.Logger

	maxRetries   int
	retryBackoff time.Duration
	pageSize     int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. tokens may be nil for
// unauthenticated endpoints.
func NewClient(baseURL string, tokens auth.TokenProvider, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       zap.NewNop(),
		maxRetries:   3,
		retryBackoff: time.Second,
		pageSize:     500,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration for GET requests.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPageSize sets the page size used when listing markets.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}
