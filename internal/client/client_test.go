package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auth-failover/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSelector hands out urls in order and records outcome reports
type scriptedSelector struct {
	mu        sync.Mutex
	urls      []string
	selectErr error
	selected  int
	successes []string
	failures  []string
}

func (s *scriptedSelector) SelectEndpoint(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectErr != nil {
		return "", s.selectErr
	}
	url := s.urls[s.selected%len(s.urls)]
	s.selected++
	return url, nil
}

func (s *scriptedSelector) ReportSuccess(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, url)
}

func (s *scriptedSelector) ReportFailure(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, url)
}

func (s *scriptedSelector) Stats() []registry.EndpointStats {
	return nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	sel := &scriptedSelector{urls: []string{"http://a", "http://b"}}
	sleeps := &sleepRecorder{}
	c := New(sel, WithSleep(sleeps.Sleep))

	boom := errors.New("connection reset")
	calls := 0
	_, err := Execute(context.Background(), c, "login", func(ctx context.Context, url string) (string, error) {
		calls++
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllServersFailed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"http://a", "http://b", "http://a"}, sel.failures)
	assert.Empty(t, sel.successes)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeps.delays)
}

func TestExecuteSucceedsOnRetry(t *testing.T) {
	sel := &scriptedSelector{urls: []string{"http://a", "http://b"}}
	c := New(sel, WithSleep((&sleepRecorder{}).Sleep))

	got, err := Execute(context.Background(), c, "login", func(ctx context.Context, url string) (string, error) {
		if url == "http://a" {
			return "", ErrNetwork
		}
		return "token-from-" + url, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "token-from-http://b", got)
	assert.Equal(t, []string{"http://a"}, sel.failures)
	assert.Equal(t, []string{"http://b"}, sel.successes)
}

func TestExecuteSelectionFailureIsNotRetried(t *testing.T) {
	sel := &scriptedSelector{selectErr: registry.ErrNoServersAvailable}
	sleeps := &sleepRecorder{}
	c := New(sel, WithSleep(sleeps.Sleep))

	called := false
	_, err := Execute(context.Background(), c, "login", func(ctx context.Context, url string) (int, error) {
		called = true
		return 0, nil
	})

	assert.ErrorIs(t, err, ErrNoServersAvailable)
	assert.False(t, errors.Is(err, ErrAllServersFailed))
	assert.False(t, called)
	assert.Empty(t, sleeps.delays)
}

func TestExecuteCustomAttemptsAndBackoff(t *testing.T) {
	sel := &scriptedSelector{urls: []string{"http://a"}}
	sleeps := &sleepRecorder{}
	settings := DefaultSettings()
	settings.MaxAttempts = 4
	settings.BaseBackoff = 10 * time.Millisecond
	c := New(sel, WithSettings(settings), WithSleep(sleeps.Sleep))

	_, err := Execute(context.Background(), c, "verify_settings", func(ctx context.Context, url string) (bool, error) {
		return false, ErrParse
	})

	assert.ErrorIs(t, err, ErrAllServersFailed)
	assert.ErrorIs(t, err, ErrParse)
	assert.Len(t, sel.failures, 4)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, sleeps.delays)
}

func TestExecuteStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	sel := &scriptedSelector{urls: []string{"http://a"}}
	c := New(sel)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Execute(ctx, c, "login", func(ctx context.Context, url string) (int, error) {
		calls++
		cancel()
		return 0, ErrNetwork
	})

	assert.ErrorIs(t, err, ErrAllServersFailed)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, 1, calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestSettingsAndStats(t *testing.T) {
	reg := registry.New([]registry.Endpoint{{URL: "http://a", Enabled: true}, {URL: "http://b", Priority: 1}})
	c := New(reg)

	stats := c.Stats()
	assert.Equal(t, 10, stats.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, stats.IdleConnTimeout)
	assert.Equal(t, 3, stats.MaxAttempts)
	require.Len(t, stats.Endpoints, 1)
	assert.Equal(t, "http://a", stats.Endpoints[0].URL)
	assert.Contains(t, stats.String(), "max_idle=10")

	hc := NewHTTPClient(DefaultSettings())
	assert.Equal(t, 10*time.Second, hc.Timeout)
}
