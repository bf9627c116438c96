package llm

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the OpenRouter chat completions URL.
const DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

const (
	defaultHTTPTimeout = 120 * time.Second
	defaultTemperature = 0.1
)

// Config holds the OpenRouter connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

func (c Config) normalized() Config {
	out := Config{
		APIKey:         strings.TrimSpace(c.APIKey),
		BaseURL:        strings.TrimSpace(c.BaseURL),
		Model:          strings.TrimSpace(c.Model),
		Referer:        strings.TrimSpace(c.Referer),
		Title:          strings.TrimSpace(c.Title),
		TimeoutSeconds: c.TimeoutSeconds,
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultEndpoint
	}
	return out
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return defaultHTTPTimeout
}

// Client sends extraction prompts to a chat completion endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	retry   retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRateLimit paces requests to perMinute requests per minute. Zero or
// negative disables pacing.
func WithRateLimit(perMinute float64) Option {
	return func(c *Client) {
		c.limiter = nil
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perMinute/60), 1)
		}
	}
}

// WithRetryMaxAttempts sets the total attempt count, first try included.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first backoff step and its ceiling.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(c *Client) {
		c.retry.base = base
		c.retry.ceiling = ceiling
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleep = sleep }
}

// NewClient builds a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.normalized()
	client := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.timeout()},
		retry: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}
