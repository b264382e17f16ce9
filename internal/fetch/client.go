// Package fetch retrieves result rows from remote sources, dispatching on
// each source's retrieval kind: plain tabular HTTP, zip archives, or a
// browser session through the bridge.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/gchickering21/downballot/internal/config"
)

// maxBodyBytes caps a single response body. The largest NC archive seen so
// far is under 200MB.
const maxBodyBytes = 512 << 20

// Client is the shared polite HTTP transport: one rate limiter across all
// outbound requests, a stable User-Agent, and a hard timeout.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	ua      string
}

// NewClient builds the transport from config
func NewClient(cfg config.TransportConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		ua:      cfg.UserAgent,
	}
}

// Get fetches a URL and returns the body bytes
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// GetDocument fetches a URL and parses the body as HTML
func (c *Client) GetDocument(ctx context.Context, url string) (*html.Node, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return html.Parse(bytes.NewReader(body))
}

var errNotFound = fmt.Errorf("not found")
