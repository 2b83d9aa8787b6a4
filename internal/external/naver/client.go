package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/lens/backend/pkg/httputil"
	"github.com/wonny/lens/backend/pkg/logger"
)

// DefaultBaseURL is the Naver Finance origin
const DefaultBaseURL = "https://finance.naver.com"

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	maxPages   int
}

// NewClient creates a new Naver Finance client.
// Throttling and retries are configured on httpClient.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxPages:   400,
	}
}

// WithMaxPages bounds the pagination of one series fetch
func (c *Client) WithMaxPages(n int) *Client {
	if n > 0 {
		c.maxPages = n
	}
	return c
}

// fetchHTML fetches an HTML page from Naver Finance
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	return string(body), nil
}
