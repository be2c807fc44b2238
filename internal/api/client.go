// Package api implements the HTTP client for the dude proxy server.
package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/stream"
)

// ClientInterface is the backend surface consumed by the pipeline and the
// commands.
type ClientInterface interface {
	GenerateContentStream(ctx context.Context, message string, hist []models.Message, attachments []models.Attachment) (stream.Source, error)
	GenerateTitle(ctx context.Context, message string) (string, error)
	GenerateAvatar(ctx context.Context) (string, error)
}

// Client talks to the proxy server over HTTP.
type Client struct {
	httpClient tls_client.HttpClient
	baseURL    string

	mu     sync.RWMutex
	closed bool
}

var _ ClientInterface = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout time.Duration
}

// WithTimeout sets the request timeout. Streaming responses can be long
// lived, so the default is generous.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// NewClient creates a client for the proxy at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}

	cfg := &clientConfig{timeout: 300 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(cfg.timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

// Close shuts down the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed returns whether the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}
