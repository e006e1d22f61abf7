package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// probeRecorder answers probes from a per-url table and counts calls.
type probeRecorder struct {
	mu     sync.Mutex
	fail   map[string]bool
	probes map[string]int
}

func newProbeRecorder() *probeRecorder {
	return &probeRecorder{fail: map[string]bool{}, probes: map[string]int{}}
}

func (p *probeRecorder) Probe(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[url]++
	if p.fail[url] {
		return errors.New("connection refused")
	}
	return nil
}

func (p *probeRecorder) setFailing(url string, failing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[url] = failing
}

func (p *probeRecorder) count(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes[url]
}

const (
	primary   = "http://primary:21114"
	secondary = "http://secondary:21114"
	tertiary  = "http://tertiary:21114"
)

func threeEndpoints() []Endpoint {
	return []Endpoint{
		{URL: tertiary, Priority: 2, Enabled: true},
		{URL: primary, Priority: 0, Enabled: true},
		{URL: secondary, Priority: 1, Enabled: true},
	}
}

func newTestRegistry(endpoints []Endpoint) (*Registry, *fakeClock, *probeRecorder) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	probes := newProbeRecorder()
	reg := New(endpoints, WithClock(clock.Now), WithProbe(probes.Probe))
	return reg, clock, probes
}

func TestSelectEndpointPriority(t *testing.T) {
	ctx := context.Background()
	reg, _, probes := newTestRegistry(threeEndpoints())

	for i := 0; i < 5; i++ {
		url, err := reg.SelectEndpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, primary, url)
	}
	assert.Zero(t, probes.count(primary), "fresh healthy entries must not be probed")
}

func TestSelectEndpointSkipsFailedPrimary(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry(threeEndpoints())

	for i := 0; i < 3; i++ {
		reg.ReportFailure(primary)
	}

	url, err := reg.SelectEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondary, url)

	reg.ReportSuccess(primary)
	url, err = reg.SelectEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, primary, url)
}

func TestSelectEndpointFailureThresholdSurvivesStaleness(t *testing.T) {
	ctx := context.Background()
	reg, clock, probes := newTestRegistry(threeEndpoints())

	for i := 0; i < 3; i++ {
		reg.ReportFailure(primary)
	}
	clock.Advance(time.Minute)

	url, err := reg.SelectEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondary, url)
	assert.Zero(t, probes.count(primary))
	assert.Equal(t, 1, probes.count(secondary))
}

func TestSelectEndpointStaleProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("ProbeSuccessReturnsEndpoint", func(t *testing.T) {
		reg, clock, probes := newTestRegistry(threeEndpoints())
		reg.ReportFailure(primary)
		clock.Advance(31 * time.Second)

		url, err := reg.SelectEndpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, primary, url)
		assert.Equal(t, 1, probes.count(primary))

		stats := statsByURL(reg)
		assert.True(t, stats[primary].Healthy)
		assert.Zero(t, stats[primary].ConsecutiveFailures)
		assert.Equal(t, clock.Now(), stats[primary].LastChecked)
	})

	t.Run("ProbeFailureMovesOn", func(t *testing.T) {
		reg, clock, probes := newTestRegistry(threeEndpoints())
		probes.setFailing(primary, true)
		clock.Advance(31 * time.Second)

		url, err := reg.SelectEndpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, secondary, url)

		stats := statsByURL(reg)
		assert.False(t, stats[primary].Healthy)
		assert.Equal(t, 1, stats[primary].ConsecutiveFailures)
	})

	t.Run("ExactlyAtIntervalIsFresh", func(t *testing.T) {
		reg, clock, probes := newTestRegistry(threeEndpoints())
		clock.Advance(30 * time.Second)

		url, err := reg.SelectEndpoint(ctx)
		require.NoError(t, err)
		assert.Equal(t, primary, url)
		assert.Zero(t, probes.count(primary))
	})
}

func TestSelectEndpointFreshUnhealthyIsSkipped(t *testing.T) {
	reg, _, probes := newTestRegistry(threeEndpoints())
	reg.ReportFailure(primary)

	url, err := reg.SelectEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secondary, url)
	assert.Zero(t, probes.count(primary))
}

func TestSelectEndpointNoServers(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		reg, _, _ := newTestRegistry(nil)
		_, err := reg.SelectEndpoint(ctx)
		assert.ErrorIs(t, err, ErrNoServersAvailable)
	})

	t.Run("AllDisabled", func(t *testing.T) {
		reg, _, _ := newTestRegistry([]Endpoint{{URL: primary, Enabled: false}})
		_, err := reg.SelectEndpoint(ctx)
		assert.ErrorIs(t, err, ErrNoServersAvailable)
	})

	t.Run("AllOverThreshold", func(t *testing.T) {
		reg, _, _ := newTestRegistry(threeEndpoints())
		for _, url := range []string{primary, secondary, tertiary} {
			for i := 0; i < 3; i++ {
				reg.ReportFailure(url)
			}
		}
		_, err := reg.SelectEndpoint(ctx)
		assert.ErrorIs(t, err, ErrNoServersAvailable)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		reg, _, _ := newTestRegistry(threeEndpoints())
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := reg.SelectEndpoint(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSelectEndpointIgnoresDisabled(t *testing.T) {
	reg, _, _ := newTestRegistry([]Endpoint{
		{URL: primary, Priority: 0, Enabled: false},
		{URL: secondary, Priority: 1, Enabled: true},
	})

	url, err := reg.SelectEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secondary, url)
}

func TestReconfigure(t *testing.T) {
	ctx := context.Background()
	reg, clock, _ := newTestRegistry(threeEndpoints())
	for i := 0; i < 3; i++ {
		reg.ReportFailure(primary)
	}
	clock.Advance(time.Minute)

	reg.Reconfigure([]Endpoint{
		{URL: primary, Priority: 5, Enabled: true},
		{URL: "http://new:21114", Priority: 0, Enabled: true},
	})

	assert.Len(t, reg.Endpoints(), 2)
	for _, s := range reg.Stats() {
		assert.True(t, s.Health.Healthy, s.URL)
		assert.Zero(t, s.Health.ConsecutiveFailures, s.URL)
		assert.Equal(t, clock.Now(), s.Health.LastChecked, s.URL)
	}

	url, err := reg.SelectEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://new:21114", url)

	reg.ReportFailure(secondary)
	assert.Len(t, reg.Stats(), 2)
}

// blockingCheck fails every probe, but only once release is closed
type blockingCheck struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingCheck() *blockingCheck {
	return &blockingCheck{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *blockingCheck) Probe(context.Context, string) error {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return errors.New("connection refused")
}

func TestReconfigureDuringHealthCheck(t *testing.T) {
	t.Run("StaleResultDropped", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		probe := newBlockingCheck()
		reg := New([]Endpoint{{URL: primary, Enabled: true}}, WithClock(clock.Now), WithProbe(probe.Probe))
		clock.Advance(time.Minute)

		done := make(chan struct{})
		go func() {
			defer close(done)
			reg.ProbeAll(context.Background())
		}()

		<-probe.started
		reg.Reconfigure([]Endpoint{{URL: primary, Enabled: true}})
		close(probe.release)
		<-done

		stats := statsByURL(reg)
		assert.True(t, stats[primary].Healthy)
		assert.Zero(t, stats[primary].ConsecutiveFailures)
		assert.Equal(t, clock.Now(), stats[primary].LastChecked)
	})

	t.Run("SelectionRestartsOnNewSet", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		probe := newBlockingCheck()
		reg := New([]Endpoint{{URL: primary, Enabled: true}}, WithClock(clock.Now), WithProbe(probe.Probe))
		clock.Advance(time.Minute)

		type result struct {
			url string
			err error
		}
		done := make(chan result, 1)
		go func() {
			url, err := reg.SelectEndpoint(context.Background())
			done <- result{url, err}
		}()

		<-probe.started
		reg.Reconfigure([]Endpoint{{URL: secondary, Enabled: true}})
		close(probe.release)

		got := <-done
		require.NoError(t, got.err)
		assert.Equal(t, secondary, got.url)
		assert.True(t, statsByURL(reg)[secondary].Healthy)
	})
}

func TestStatsEnabledOnly(t *testing.T) {
	reg, _, _ := newTestRegistry([]Endpoint{
		{URL: primary, Priority: 0, Enabled: true},
		{URL: secondary, Priority: 1, Enabled: false},
		{URL: tertiary, Priority: 2, Enabled: true},
	})
	reg.ReportFailure(tertiary)

	stats := reg.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, primary, stats[0].URL)
	assert.Equal(t, tertiary, stats[1].URL)
	assert.Equal(t, 1, stats[1].Health.ConsecutiveFailures)
	assert.False(t, stats[1].Health.Healthy)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	reg, clock, _ := newTestRegistry(threeEndpoints())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				_, _ = reg.SelectEndpoint(ctx)
			case 1:
				reg.ReportFailure(primary)
			case 2:
				reg.ReportSuccess(primary)
			case 3:
				clock.Advance(time.Second)
				_ = reg.Stats()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.Stats(), 3)
}

func TestHTTPProbe(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	probe := HTTPProbe(healthy.Client())
	ctx := context.Background()

	assert.NoError(t, probe(ctx, healthy.URL))
	assert.NoError(t, probe(ctx, healthy.URL+"/"))
	assert.Error(t, probe(ctx, broken.URL))
	assert.Error(t, probe(ctx, "http://127.0.0.1:1"))
}

func TestSelectEndpointWithHTTPProbe(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	reg := New([]Endpoint{
		{URL: downURL, Priority: 0, Enabled: true},
		{URL: up.URL, Priority: 1, Enabled: true},
	}, WithClock(clock.Now), WithProbe(HTTPProbe(&http.Client{})))
	clock.Advance(time.Minute)

	url, err := reg.SelectEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, up.URL, url)

	stats := statsByURL(reg)
	assert.Equal(t, 1, stats[downURL].ConsecutiveFailures)
	assert.True(t, stats[up.URL].Healthy)
}

func statsByURL(reg *Registry) map[string]Health {
	out := make(map[string]Health)
	for _, s := range reg.Stats() {
		out[s.URL] = s.Health
	}
	return out
}
