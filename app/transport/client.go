package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxReplySize = 32 << 20

// Conn issues no-argument remote calls against one provider endpoint and
// returns the raw reply body.
type Conn interface {
	Call(ctx context.Context, method string) ([]byte, error)
	Name() string
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

var _ Conn = (*Client)(nil)

func NewClient(endpoint string, httpClient *http.Client, userAgent string, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (c *Client) Name() string {
	return c.endpoint
}

func (c *Client) Call(ctx context.Context, method string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/%s", c.endpoint, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}

	return data, nil
}
