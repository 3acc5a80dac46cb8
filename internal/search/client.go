package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/kanari/internal/metrics"
	"github.com/FranksOps/kanari/pkg/httpclient"
	"github.com/FranksOps/kanari/pkg/ratelimit"
)

// ErrMissingCredentials is returned when either half of the credential
// pair is absent. This is a precondition failure: no request is ever
// issued unauthenticated.
var ErrMissingCredentials = errors.New("search: client id and secret are both required")

const defaultBaseURL = "https://openapi.naver.com/v1/search"

// ClientConfig configures the API client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL overrides the service endpoint, mainly for tests.
	BaseURL string
	Timeout time.Duration
	// Limiter paces calls across all categories and queries. Optional.
	Limiter *ratelimit.Limiter
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client implements Provider against the real search service. Requests
// carry the credential pair as headers and always ask for
// newest-first ordering.
type Client struct {
	cfg     ClientConfig
	baseURL string
	client  *httpclient.Client
}

// NewClient validates the credentials and builds a client with a
// bounded per-call timeout.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &Client{cfg: cfg, baseURL: base, client: client}, nil
}

// Search fetches one page for (category, query). start below 1 is
// raised to 1 and display is clamped to MaxDisplay. Any transport
// error, non-200 status, or malformed payload is returned as an error;
// pagination policy on failure belongs to the caller.
func (c *Client) Search(ctx context.Context, category Category, query string, start, display int) (*Result, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown search category %q", category)
	}
	if start < 1 {
		start = 1
	}
	if display < 1 || display > MaxDisplay {
		display = MaxDisplay
	}

	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("start", strconv.Itoa(start))
	q.Set("display", strconv.Itoa(display))
	q.Set("sort", "date")
	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, category, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.cfg.ClientID)
	req.Header.Set("X-Naver-Client-Secret", c.cfg.ClientSecret)
	req.Header.Set("Accept", "application/json")

	begin := time.Now()
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		metrics.RecordSearch(string(category), "error", time.Since(begin), 0)
		return nil, fmt.Errorf("search %s %q: %w", category, query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body so the error names the cause.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		metrics.RecordSearch(string(category), strconv.Itoa(resp.StatusCode), time.Since(begin), 0)
		return nil, fmt.Errorf("search %s %q: status %d: %s", category, query, resp.StatusCode, snippet)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.RecordSearch(string(category), "malformed", time.Since(begin), 0)
		return nil, fmt.Errorf("search %s %q: decode response: %w", category, query, err)
	}

	metrics.RecordSearch(string(category), strconv.Itoa(resp.StatusCode), time.Since(begin), len(result.Items))
	return &result, nil
}
