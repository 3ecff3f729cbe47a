package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/armorclaw/raven/pkg/event"
)

// Default HTTP transport limits
const (
	DefaultHTTPTimeout = 10 * time.Second
	DefaultRateLimit   = 10.0 // packets per second
	DefaultRateBurst   = 20
)

// HTTPConfig configures an HTTPTransport
type HTTPConfig struct {
	DSN       string
	Timeout   time.Duration
	RateLimit float64 // packets per second; <= 0 uses the default
	RateBurst int
	Client    *http.Client
}

// HTTPTransport posts packets as JSON to the store endpoint of a DSN.
type HTTPTransport struct {
	dsn     *DSN
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewHTTPTransport creates an HTTP transport
func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	dsn, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPTransport{
		dsn:     dsn,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		now:     time.Now,
	}, nil
}

// Name implements Named
func (t *HTTPTransport) Name() string {
	return "http"
}

// DSN returns the parsed DSN
func (t *HTTPTransport) DSN() *DSN {
	return t.dsn
}

// Send posts p once. Waiting for the rate limiter honors ctx.
func (t *HTTPTransport) Send(ctx context.Context, p *event.Packet) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := p.JSON()
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.dsn.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ClientName)
	req.Header.Set("X-Sentry-Auth", t.dsn.AuthHeader(t.now()))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post packet: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Reason:     resp.Header.Get("X-Sentry-Error"),
		}
	}
	return nil
}

// Close releases idle connections
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
