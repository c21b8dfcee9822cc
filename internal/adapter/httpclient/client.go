package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/port"
)

// DefaultUserAgent is a desktop browser identity; some servers reject requests without one
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config contains client configuration
type Config struct {
	// Timeout bounds each request including reading the body
	Timeout time.Duration

	UserAgent string

	// RequestsPerSecond paces outgoing requests; 0 disables pacing
	RequestsPerSecond float64

	// MaxPageBytes caps the root document size; 0 means unlimited
	MaxPageBytes int64

	// MaxConnsPerHost bounds open connections per host; usually the worker count
	MaxConnsPerHost int
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		UserAgent:       DefaultUserAgent,
		MaxPageBytes:    32 * 1024 * 1024,
		MaxConnsPerHost: 8,
	}
}

// Client is the outbound HTTP client of a mirror run
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Ensure Client implements port.HTTPClient
var _ port.HTTPClient = (*Client)(nil)

// New creates a new Client
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 8
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,

		// Response header timeout (the client timeout covers the body)
		ResponseHeaderTimeout: cfg.Timeout,
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// FetchPage retrieves a full document
func (c *Client) FetchPage(ctx context.Context, rawURL string) (*port.Page, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if c.config.MaxPageBytes > 0 {
		body = io.LimitReader(resp.Body, c.config.MaxPageBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if c.config.MaxPageBytes > 0 && int64(len(data)) > c.config.MaxPageBytes {
		return nil, fmt.Errorf("page larger than %d bytes: %w", c.config.MaxPageBytes, domain.ErrAssetTooLarge)
	}

	return &port.Page{URL: resp.Request.URL, Body: data}, nil
}

// Download opens an asset body for streaming; the caller must close it
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, int, int64, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, 0, 0, err
	}
	return resp.Body, resp.StatusCode, resp.ContentLength, nil
}

// get performs a GET and converts non-2xx responses into *domain.StatusError
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, rawURL)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, domain.NewStatusError(rawURL, resp.StatusCode)
	}

	return resp, nil
}
