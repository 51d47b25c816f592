package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mosaicrun/remotebrowser/log"
)

const (
	attachAttempts = 10
	attachDelay    = time.Second

	clientTimeout = 20 * time.Second
)

// Client talks to a session state server from another process.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewClient returns a client for the state server at baseURL.
func NewClient(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: clientTimeout},
		logger:  logger,
	}
}

// Attach waits for the state server to come up, polling its health
// endpoint with a fixed delay between attempts.
func (c *Client) Attach(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= attachAttempts; attempt++ {
		if err := c.health(ctx); err == nil {
			c.logger.Debugf("session:client", "attached to state server at %s", c.baseURL)
			return nil
		} else {
			lastErr = err
			c.logger.Warnf("session:client", "state server not ready (attempt %d/%d): %v",
				attempt, attachAttempts, err)
		}
		if attempt < attachAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(attachDelay):
			}
		}
	}
	return fmt.Errorf("state server at %s not reachable after %d attempts: %w",
		c.baseURL, attachAttempts, lastErr)
}

func (c *Client) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Initialize asks the state server for a browser session, launching one if
// none is running, and returns its CDP URL.
func (c *Client) Initialize(ctx context.Context) (string, error) {
	var out struct {
		CDPURL string `json:"cdp_url"`
		Error  string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/initialize", &out); err != nil {
		return "", err
	}
	return out.CDPURL, nil
}

// CDPURL returns the CDP URL of the running session.
func (c *Client) CDPURL(ctx context.Context) (string, error) {
	var out struct {
		CDPURL string `json:"cdp_url"`
	}
	if err := c.do(ctx, http.MethodGet, "/cdp_url", &out); err != nil {
		return "", err
	}
	return out.CDPURL, nil
}

// Telemetry fetches the session telemetry snapshot.
func (c *Client) Telemetry(ctx context.Context) (Telemetry, error) {
	var out Telemetry
	if err := c.do(ctx, http.MethodGet, "/telemetry", &out); err != nil {
		return Telemetry{}, err
	}
	return out, nil
}

// Shutdown asks the state server to terminate the browser session.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/shutdown", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
