// ABOUTME: Tests for the callback-status poller
// ABOUTME: Verifies tick cadence, stop-on-ready, error tolerance, Stop, and max wait
package setup

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/textback/models"
)

const testInterval = 10 * time.Millisecond

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// scriptedStatus returns queued results in order, then repeats "not ready".
type scriptedStatus struct {
	mu      sync.Mutex
	results []statusResult
	calls   int
	times   []time.Time
}

type statusResult struct {
	status *models.OAuthCallbackStatus
	err    error
}

func (s *scriptedStatus) fetch(_ context.Context, _ models.Provider) (*models.OAuthCallbackStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.times = append(s.times, time.Now())
	if len(s.results) == 0 {
		return &models.OAuthCallbackStatus{Success: false}, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.status, r.err
}

func (s *scriptedStatus) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func readyStatus() *models.OAuthCallbackStatus {
	return &models.OAuthCallbackStatus{
		Success:       true,
		IntegrationID: "abc",
		Calendars:     []models.CalendarOption{{ID: "cal1", Name: "Primary"}},
	}
}

func TestPollerStopsAfterReady(t *testing.T) {
	script := &scriptedStatus{results: []statusResult{
		{status: &models.OAuthCallbackStatus{Success: false}},
		{status: &models.OAuthCallbackStatus{Success: true}},
		{status: readyStatus()},
	}}
	p := NewPoller(script.fetch, testInterval, 0, quietLogger())

	ready := make(chan models.OAuthCallbackStatus, 1)
	p.Start(models.ProviderGoogle, PollCallbacks{Ready: func(s models.OAuthCallbackStatus) { ready <- s }})

	select {
	case s := <-ready:
		assert.Equal(t, "abc", s.IntegrationID)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never reported ready")
	}

	assert.False(t, p.Running())
	calls := script.count()
	assert.Equal(t, 3, calls)

	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, script.count(), "no requests after ready")
}

func TestPollerContinuesAfterErrors(t *testing.T) {
	script := &scriptedStatus{results: []statusResult{
		{err: errors.New("connection reset")},
		{err: errors.New("502 bad gateway")},
		{status: readyStatus()},
	}}
	p := NewPoller(script.fetch, testInterval, 0, quietLogger())

	ready := make(chan struct{})
	p.Start(models.ProviderOutlook, PollCallbacks{Ready: func(models.OAuthCallbackStatus) { close(ready) }})

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("errors should not abort polling")
	}
	assert.Equal(t, 3, script.count())
}

func TestPollerStopPreventsFurtherRequests(t *testing.T) {
	script := &scriptedStatus{}
	p := NewPoller(script.fetch, testInterval, 0, quietLogger())
	p.Start(models.ProviderGoogle, PollCallbacks{Ready: func(models.OAuthCallbackStatus) {
		t.Error("ready should never fire")
	}})

	require.Eventually(t, func() bool { return script.count() >= 2 }, 2*time.Second, testInterval)
	p.Stop()
	assert.False(t, p.Running())

	after := script.count()
	time.Sleep(5 * testInterval)
	assert.Equal(t, after, script.count(), "stopped poller must not issue requests")

	p.Stop() // idempotent
}

func TestPollerInterval(t *testing.T) {
	script := &scriptedStatus{}
	interval := 40 * time.Millisecond
	p := NewPoller(script.fetch, interval, 0, quietLogger())
	p.Start(models.ProviderGoogle, PollCallbacks{})

	require.Eventually(t, func() bool { return script.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	p.Stop()

	script.mu.Lock()
	defer script.mu.Unlock()
	for i := 1; i < len(script.times); i++ {
		gap := script.times[i].Sub(script.times[i-1])
		assert.GreaterOrEqual(t, gap, interval/2, "requests should be spaced by the interval")
	}
}

func TestPollerRestartStopsPrevious(t *testing.T) {
	first := &scriptedStatus{}
	p := NewPoller(first.fetch, testInterval, 0, quietLogger())
	p.Start(models.ProviderGoogle, PollCallbacks{})
	require.Eventually(t, func() bool { return first.count() >= 1 }, 2*time.Second, testInterval)

	p.Start(models.ProviderOutlook, PollCallbacks{})
	after := first.count()
	time.Sleep(5 * testInterval)
	p.Stop()

	// Both loops share the fetch func; only one loop may be ticking.
	gained := first.count() - after
	assert.LessOrEqual(t, gained, 6)
}

func TestPollerMaxWait(t *testing.T) {
	script := &scriptedStatus{}
	p := NewPoller(script.fetch, testInterval, 5*testInterval, quietLogger())

	expired := make(chan struct{})
	p.Start(models.ProviderGoogle, PollCallbacks{Expired: func() { close(expired) }})

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("poller should expire after max wait")
	}
	assert.False(t, p.Running())

	after := script.count()
	time.Sleep(5 * testInterval)
	assert.Equal(t, after, script.count())
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(func(context.Context, models.Provider) (*models.OAuthCallbackStatus, error) {
		return nil, nil
	}, 0, 0, nil)
	assert.Equal(t, DefaultPollInterval, p.Interval())
	assert.False(t, p.Running())
}
