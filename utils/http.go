package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fliplytics/internal/types"
)

var errLoginRedirect = errors.New("redirected to login")

// Client is the authenticated page fetcher used by fetch-mode pagination.
// It attaches the session cookie and browser-realistic headers, retries
// transient failures with rate limiting, and maps a redirect to the login
// page to *types.AuthRequiredError instead of following it.
type Client struct {
	client  *http.Client
	cfg     *types.Config
	logger  types.Logger
	limiter *time.Ticker
}

// NewClient creates a fetch client with the given configuration.
func NewClient(cfg *types.Config, logger types.Logger) *Client {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if strings.Contains(strings.ToLower(req.URL.String()), "login") {
				return errLoginRedirect
			}
			return nil
		},
	}

	return &Client{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		limiter: time.NewTicker(cfg.RequestDelay),
	}
}

// FetchPage performs a GET for one order-history page and returns its
// body. The error is *types.AuthRequiredError when the session is logged
// out and *types.NetworkError for everything else.
func (c *Client) FetchPage(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		// Wait for rate limiter
		select {
		case <-c.limiter.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", &types.NetworkError{Err: fmt.Errorf("failed to create request: %w", err)}
		}

		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
		req.Header.Set("Cache-Control", "max-age=0")
		req.Header.Set("Referer", c.cfg.BaseURL+"/")
		if c.cfg.SessionCookie != "" {
			req.Header.Set("Cookie", c.cfg.SessionCookie)
		}

		c.logger.Debugf("Fetching %s (attempt %d/%d)", url, attempt+1, c.cfg.MaxRetries+1)

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, errLoginRedirect) {
				return "", &types.AuthRequiredError{Reason: "redirected to login page"}
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warnf("Request failed (attempt %d): %v", attempt+1, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Warnf("Unexpected status code %d (attempt %d)", resp.StatusCode, attempt+1)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			c.logger.Warnf("Failed to read response body (attempt %d): %v", attempt+1, err)
			continue
		}

		c.logger.Debugf("Retrieved %d bytes from %s", len(body), url)
		return string(body), nil
	}

	return "", &types.NetworkError{Err: fmt.Errorf("all retry attempts failed: %w", lastErr)}
}

// Close cleans up resources
func (c *Client) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}
