// Package httpclient builds the outbound HTTP client shared by all sources:
// request timeout, default User-Agent and an optional per-host token bucket.
package httpclient

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
)

// Config holds client configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// RPS <= 0 disables rate limiting.
	RPS   float64
	Burst int
}

// New returns an *http.Client wrapping base (http.DefaultTransport when nil).
func New(cfg Config, base http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewTransport(cfg, base),
	}
}

// WithAPIKey returns a copy of c whose requests carry key as the "key" query
// parameter. Generated Google API clients ignore option.WithAPIKey once
// option.WithHTTPClient is set, so the key has to ride on the transport.
func WithAPIKey(c *http.Client, key string) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   c.Timeout,
		Transport: &transport.APIKey{Key: key, Transport: base},
	}
}

// GoogleOptions builds the client options for a generated Google API service
// keyed by key. A non-nil c routes calls through c; endpoint overrides the
// base URL when set.
func GoogleOptions(c *http.Client, key, endpoint string) []option.ClientOption {
	var opts []option.ClientOption
	if c != nil {
		opts = append(opts, option.WithHTTPClient(WithAPIKey(c, key)))
	} else {
		opts = append(opts, option.WithAPIKey(key))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// Transport applies the User-Agent and per-host limits before delegating.
type Transport struct {
	base      http.RoundTripper
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewTransport creates a Transport.
func NewTransport(cfg Config, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Transport{
		base:      base,
		userAgent: cfg.UserAgent,
		limiters:  make(map[string]*rate.Limiter),
		limit:     limit,
		burst:     burst,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter(req.URL.Hostname()).Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

func (t *Transport) limiter(host string) *rate.Limiter {
	if host == "" {
		host = "unknown"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[host] = l
	}
	return l
}
