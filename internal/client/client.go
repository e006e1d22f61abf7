// Package client talks to a pool of auth service endpoints, retrying each
// logical request across endpoints with exponential backoff.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auth-failover/internal/registry"
	"auth-failover/pkg/logger"
)

// Selector is the part of the server registry the client depends on
type Selector interface {
	SelectEndpoint(ctx context.Context) (string, error)
	ReportSuccess(url string)
	ReportFailure(url string)
	Stats() []registry.EndpointStats
}

// Operation performs one attempt of a logical request against baseURL
type Operation[T any] func(ctx context.Context, baseURL string) (T, error)

// Client is safe for concurrent use
type Client struct {
	selector Selector
	settings Settings
	http     *http.Client
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithSettings(s Settings) Option {
	return func(c *Client) { c.settings = s }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log.WithComponent("failover_client") }
}

// WithSleep replaces the backoff wait
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

func WithDeviceID(id string) Option {
	return func(c *Client) { c.settings.DeviceID = id }
}

func New(selector Selector, opts ...Option) *Client {
	c := &Client{
		selector: selector,
		settings: DefaultSettings(),
		log:      logger.NewNopLogger(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.MaxAttempts < 1 {
		c.settings.MaxAttempts = 1
	}
	if c.http == nil {
		c.http = NewHTTPClient(c.settings)
	}
	return c
}

// Execute runs op against the best endpoint, re-selecting and backing off
// after each failure. Selection failures are returned immediately.
func Execute[T any](ctx context.Context, c *Client, name string, op Operation[T]) (T, error) {
	var zero T
	var lastErr error

	attempts := c.settings.MaxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		url, err := c.selector.SelectEndpoint(ctx)
		if err != nil {
			c.log.Error("Failed to get API server", "operation", name, "error", err.Error())
			if lastErr != nil {
				return zero, fmt.Errorf("%w after %d attempts: %w", err, attempt-1, lastErr)
			}
			return zero, err
		}

		c.log.Debug("Attempt %d/%d using server: %s", attempt, attempts, url)

		result, err := op(ctx, url)
		if err == nil {
			c.selector.ReportSuccess(url)
			c.log.FailoverLogger(name, url, attempt, nil)
			return result, nil
		}

		c.selector.ReportFailure(url)
		c.log.FailoverLogger(name, url, attempt, err)
		lastErr = err

		if attempt < attempts {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return zero, fmt.Errorf("%w after %d attempts: %w", ErrAllServersFailed, attempt, lastErr)
			}
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrAllServersFailed, attempts, lastErr)
}

// backoff returns the wait after the given failed attempt: base, 2*base, 4*base...
func (c *Client) backoff(attempt int) time.Duration {
	return c.settings.BaseBackoff << (attempt - 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PoolStats describes the shared transport and the endpoint health behind it
type PoolStats struct {
	MaxIdleConnsPerHost int                      `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration            `json:"idle_conn_timeout"`
	ConnectTimeout      time.Duration            `json:"connect_timeout"`
	RequestTimeout      time.Duration            `json:"request_timeout"`
	MaxAttempts         int                      `json:"max_attempts"`
	Endpoints           []registry.EndpointStats `json:"endpoints"`
}

func (c *Client) Stats() PoolStats {
	return PoolStats{
		MaxIdleConnsPerHost: c.settings.MaxIdleConnsPerHost,
		IdleConnTimeout:     c.settings.IdleConnTimeout,
		ConnectTimeout:      c.settings.ConnectTimeout,
		RequestTimeout:      c.settings.RequestTimeout,
		MaxAttempts:         c.settings.MaxAttempts,
		Endpoints:           c.selector.Stats(),
	}
}

func (s PoolStats) String() string {
	return fmt.Sprintf("HTTP Client: max_idle=%d, idle_timeout=%s, connect_timeout=%s, failover=enabled, endpoints=%d",
		s.MaxIdleConnsPerHost, s.IdleConnTimeout, s.ConnectTimeout, len(s.Endpoints))
}
