// Package registry keeps the ranked list of auth service endpoints together
// with a cached health record for each one.
package registry

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"auth-failover/pkg/logger"
)

// ErrNoServersAvailable is returned when no enabled endpoint qualifies
var ErrNoServersAvailable = errors.New("no API servers available")

// Endpoint is one configured auth service address. Priority 0 is preferred.
type Endpoint struct {
	URL      string `json:"url"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// Health is the cached liveness record of an endpoint.
type Health struct {
	Healthy             bool          `json:"is_healthy"`
	LastChecked         time.Time     `json:"last_checked"`
	ResponseTime        time.Duration `json:"response_time,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// EndpointStats pairs an endpoint URL with a snapshot of its health
type EndpointStats struct {
	URL    string `json:"url"`
	Health Health `json:"health"`
}

// ProbeFunc performs one liveness check against url
type ProbeFunc func(ctx context.Context, url string) error

// Settings tune selection and probing
type Settings struct {
	HealthInterval time.Duration
	ProbeTimeout   time.Duration
	MaxFailures    int
}

func DefaultSettings() Settings {
	return Settings{
		HealthInterval: 30 * time.Second,
		ProbeTimeout:   5 * time.Second,
		MaxFailures:    3,
	}
}

// Registry is safe for concurrent use. endpoints and health are index aligned
// and only ever replaced together; generation counts those replacements.
type Registry struct {
	mu         sync.RWMutex
	endpoints  []Endpoint
	health     []Health
	generation uint64

	settings Settings
	probe    ProbeFunc
	now      func() time.Time
	log      *logger.Logger
}

// Option configures a Registry
type Option func(*Registry)

func WithSettings(s Settings) Option {
	return func(r *Registry) { r.settings = s }
}

func WithProbe(probe ProbeFunc) Option {
	return func(r *Registry) { r.probe = probe }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log.WithComponent("registry") }
}

// New builds a registry whose endpoints all start healthy and freshly checked.
func New(endpoints []Endpoint, opts ...Option) *Registry {
	r := &Registry{
		settings: DefaultSettings(),
		now:      time.Now,
		log:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.probe == nil {
		r.probe = HTTPProbe(&http.Client{})
	}

	r.endpoints, r.health = r.freshState(endpoints)
	return r
}

func (r *Registry) freshState(endpoints []Endpoint) ([]Endpoint, []Health) {
	eps := slices.Clone(endpoints)
	health := make([]Health, len(eps))
	now := r.now()
	for i := range health {
		health[i] = Health{Healthy: true, LastChecked: now}
	}
	return eps, health
}

type candidate struct {
	endpoint Endpoint
	health   Health
}

// candidates returns enabled endpoints ordered by priority with a copy of
// their health, and the generation they belong to.
func (r *Registry) candidates() ([]candidate, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]candidate, 0, len(r.endpoints))
	for i, ep := range r.endpoints {
		if ep.Enabled {
			out = append(out, candidate{endpoint: ep, health: r.health[i]})
		}
	}
	slices.SortStableFunc(out, func(a, b candidate) int {
		return a.endpoint.Priority - b.endpoint.Priority
	})
	return out, r.generation
}

// SelectEndpoint returns the URL of the best endpoint. Endpoints at or past
// the failure threshold are skipped; stale entries are probed synchronously.
// Selection starts over when the endpoint set is replaced mid-probe.
func (r *Registry) SelectEndpoint(ctx context.Context) (string, error) {
	for {
		url, replaced, err := r.selectOnce(ctx)
		if !replaced {
			return url, err
		}
	}
}

// selectOnce reports replaced when the endpoint set changed during a probe
func (r *Registry) selectOnce(ctx context.Context) (string, bool, error) {
	candidates, gen := r.candidates()
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		url := c.endpoint.URL
		if c.health.ConsecutiveFailures >= r.settings.MaxFailures {
			r.log.Debug("Skipping endpoint over failure threshold", "url", url, "failures", c.health.ConsecutiveFailures)
			continue
		}

		if r.now().Sub(c.health.LastChecked) > r.settings.HealthInterval {
			alive, current := r.check(ctx, url, gen)
			if !current {
				return "", true, nil
			}
			if alive {
				return url, false, nil
			}
			continue
		}

		if c.health.Healthy {
			return url, false, nil
		}
	}

	return "", false, ErrNoServersAvailable
}

// check probes url without holding the lock and records the outcome. The
// outcome is dropped, and current is false, when the endpoint set was
// replaced after gen was read.
func (r *Registry) check(ctx context.Context, url string, gen uint64) (alive, current bool) {
	probeCtx, cancel := context.WithTimeout(ctx, r.settings.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := r.probe(probeCtx, url)
	elapsed := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generation != gen {
		r.log.Debug("Discarding health check for replaced endpoint set", "url", url)
		return false, false
	}

	idx := r.indexOf(url)
	if idx < 0 {
		return false, false
	}

	h := &r.health[idx]
	h.LastChecked = r.now()
	if err != nil {
		h.Healthy = false
		h.ConsecutiveFailures++
		r.log.Warning("Health check failed", "url", url, "error", err.Error(), "failures", h.ConsecutiveFailures)
		return false, true
	}

	h.Healthy = true
	h.ConsecutiveFailures = 0
	h.ResponseTime = elapsed
	r.log.Debug("Health check passed", "url", url, "response_time_ms", elapsed.Milliseconds())
	return true, true
}

// indexOf must be called with mu held.
func (r *Registry) indexOf(url string) int {
	for i, ep := range r.endpoints {
		if ep.URL == url {
			return i
		}
	}
	return -1
}

// ReportSuccess clears the failure count of url and marks it healthy
func (r *Registry) ReportSuccess(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.indexOf(url); idx >= 0 {
		r.health[idx].Healthy = true
		r.health[idx].ConsecutiveFailures = 0
	}
}

// ReportFailure bumps the failure count of url and marks it unhealthy
func (r *Registry) ReportFailure(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.indexOf(url); idx >= 0 {
		r.health[idx].Healthy = false
		r.health[idx].ConsecutiveFailures++
		r.log.Warning("Marked endpoint as failed", "url", url, "failures", r.health[idx].ConsecutiveFailures)
	}
}

// Reconfigure swaps the whole endpoint set and resets health to optimistic defaults.
func (r *Registry) Reconfigure(endpoints []Endpoint) {
	eps, health := r.freshState(endpoints)

	r.mu.Lock()
	r.endpoints, r.health = eps, health
	r.generation++
	r.mu.Unlock()

	r.log.Info("Endpoint set replaced", "count", len(eps))
}

// Stats returns a snapshot of every enabled endpoint in configuration order.
func (r *Registry) Stats() []EndpointStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EndpointStats, 0, len(r.endpoints))
	for i, ep := range r.endpoints {
		if ep.Enabled {
			out = append(out, EndpointStats{URL: ep.URL, Health: r.health[i]})
		}
	}
	return out
}

// Endpoints returns a copy of the configured endpoint list
func (r *Registry) Endpoints() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.endpoints)
}

// ProbeAll checks every enabled endpoint regardless of cache age.
func (r *Registry) ProbeAll(ctx context.Context) {
	candidates, gen := r.candidates()
	for _, c := range candidates {
		if ctx.Err() != nil {
			return
		}
		if _, current := r.check(ctx, c.endpoint.URL, gen); !current {
			return
		}
	}
}
