package registry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Monitor refreshes endpoint health in the background and reports transitions.
type Monitor struct {
	registry *Registry
	interval time.Duration

	onDown func(url string)
	onUp   func(url string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    map[string]bool
}

func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		last:     make(map[string]bool),
	}
}

// SetCallbacks sets the down/up transition callbacks
func (m *Monitor) SetCallbacks(onDown, onUp func(url string)) {
	m.onDown = onDown
	m.onUp = onUp
}

// Start begins periodic probing until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("monitor is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	for _, s := range m.registry.Stats() {
		m.last[s.URL] = s.Health.Healthy
	}

	go m.run(ctx, m.done)
	m.registry.log.Info("Health monitor started", "interval", m.interval.String())
	return nil
}

// Stop halts monitoring and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	done := m.done
	m.running = false
	m.mu.Unlock()

	<-done
	m.registry.log.Info("Health monitor stopped")
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick probes all enabled endpoints once and fires callbacks for any
// endpoint whose health flipped since the previous tick.
func (m *Monitor) Tick(ctx context.Context) {
	m.registry.ProbeAll(ctx)

	for _, s := range m.registry.Stats() {
		prev, seen := m.last[s.URL]
		m.last[s.URL] = s.Health.Healthy
		if !seen || prev == s.Health.Healthy {
			continue
		}
		if s.Health.Healthy {
			m.registry.log.Info("Endpoint recovered", "url", s.URL)
			if m.onUp != nil {
				m.onUp(s.URL)
			}
		} else {
			m.registry.log.Warning("Endpoint went down", "url", s.URL)
			if m.onDown != nil {
				m.onDown(s.URL)
			}
		}
	}
}
