package api

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/signalhub/internal/auth"
	"github.com/rickgao/signalhub/internal/version"
)

const defaultTimeout = 30 * time.Second

// RetryPolicy controls how transient failures (5xx, 429) are retried.
type RetryPolicy struct {
	Retries    int           // Retries after the first attempt
	Backoff    time.Duration // Delay before the first retry, doubled each time
	MaxBackoff time.Duration // Cap on the doubled delay, zero for none
}

// DefaultRetryPolicy returns 3 retries starting at one second, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 3, Backoff: time.Second, MaxBackoff: 10 * time.Second}
}

// delay returns the jittered wait before retry n (1-based): the doubled
// backoff scaled by a factor in [0.5, 1.5).
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.Backoff
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int64N(int64(d)))
}

// Client talks to a signalhub server on behalf of a trading agent.
type Client struct {
	baseURL    string
	creds      *auth.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	retry      RetryPolicy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the server at baseURL. An empty key sends
// no credentials, which only /health accepts.
func NewClient(baseURL, key string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		userAgent:  "signalhub-client/" + version.Version,
		retry:      DefaultRetryPolicy(),
	}
	if key != "" {
		c.creds = &auth.Credentials{Key: key}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetries sets the retry count and initial backoff, keeping the cap.
func WithRetries(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retry.Retries = retries
		c.retry.Backoff = backoff
	}
}

// WithRetryPolicy replaces the whole retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets a custom HTTP client. Apply it before WithTimeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}
