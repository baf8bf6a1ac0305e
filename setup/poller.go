// ABOUTME: Fixed-interval poller for the OAuth callback-status endpoint
// ABOUTME: Stops on a ready status, on Stop, or when an optional max wait elapses
package setup

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/textback/models"
)

// DefaultPollInterval matches the dashboard's two second status poll.
const DefaultPollInterval = 2 * time.Second

// StatusFunc fetches the callback status for a provider.
type StatusFunc func(ctx context.Context, provider models.Provider) (*models.OAuthCallbackStatus, error)

// PollCallbacks receive the poller's terminal outcomes. They run on the poll
// goroutine and must not call Stop.
type PollCallbacks struct {
	Ready   func(models.OAuthCallbackStatus)
	Expired func()
}

// Poller issues one status request per interval until the OAuth exchange completes.
type Poller struct {
	fetch    StatusFunc
	interval time.Duration
	maxWait  time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. maxWait <= 0 polls until stopped.
func NewPoller(fetch StatusFunc, interval, maxWait time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		fetch:    fetch,
		interval: interval,
		maxWait:  maxWait,
		logger:   logger,
	}
}

// Interval returns the time between status requests.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling for provider, stopping any poll already running.
func (p *Poller) Start(provider models.Provider, callbacks PollCallbacks) {
	p.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(ctx, provider, callbacks, done)
}

// Stop cancels polling and waits for the loop to exit. No status request is
// issued after Stop returns. Safe to call when idle.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, provider models.Provider, callbacks PollCallbacks, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		timer := time.NewTimer(p.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	logger := p.logger.With("provider", provider)
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			logger.Info("stopped waiting for authorization", "attempts", attempts, "max_wait", p.maxWait)
			if p.release(done) && callbacks.Expired != nil {
				callbacks.Expired()
			}
			return
		case <-ticker.C:
		}

		// Stop may have landed while the tick was pending.
		if ctx.Err() != nil {
			return
		}

		attempts++
		status, err := p.fetch(ctx, provider)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("callback status request failed", "attempt", attempts, "err", err)
			continue
		}
		if status == nil || !status.Ready() {
			logger.Debug("authorization not completed yet", "attempt", attempts)
			continue
		}

		logger.Debug("authorization completed", "attempt", attempts, "integration_id", status.IntegrationID)
		if p.release(done) && callbacks.Ready != nil {
			callbacks.Ready(*status)
		}
		return
	}
}

// release clears the handle when the loop ends on its own, so Running is false
// before callbacks run. It reports false when a concurrent Stop already owns
// the handle, in which case the outcome is dropped.
func (p *Poller) release(done chan struct{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return false
	}
	p.cancel()
	p.cancel, p.done = nil, nil
	return true
}
