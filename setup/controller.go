// ABOUTME: Controller for the calendar integrations page and its connection dialog
// ABOUTME: Owns the dialog state, the status poller, the shared error slot, and registry actions
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/textback/api"
	"github.com/harperreed/textback/models"
)

var (
	ErrNoDialog         = errors.New("no connection dialog is open")
	ErrBusy             = errors.New("a request is already in flight")
	ErrInvalidSelection = errors.New("selection is not one of the offered calendars")
	ErrEmptyToken       = errors.New("personal access token is required")
	ErrRefreshFailed    = errors.New("failed to refresh integrations")
)

// API is the subset of the backend the connection flow calls.
type API interface {
	Authorize(ctx context.Context, provider models.Provider) (string, error)
	CallbackStatus(ctx context.Context, provider models.Provider) (*models.OAuthCallbackStatus, error)
	SelectCalendar(ctx context.Context, provider models.Provider, integrationID, calendarID string) error
	SetupCalendly(ctx context.Context, personalAccessToken string) (*models.CalendlySetupResponse, error)
	SelectEventType(ctx context.Context, integrationID, eventTypeURI string) error
	CompleteOnboardingStep(ctx context.Context, stepID string) error
}

// Registry is the integration list cache refreshed after each mutation.
type Registry interface {
	Refresh(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	Integrations() []models.CalendarIntegration
}

// AttemptRecorder persists the history of connection attempts.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt models.SetupAttempt) error
}

// Options tunes a Controller. Zero values use defaults.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	Opener       Opener
	Recorder     AttemptRecorder
	Logger       *log.Logger
}

// Event is a snapshot of the page state published after every change.
type Event struct {
	Dialog           Dialog
	Err              string
	Busy             bool
	AuthorizationURL string
}

// Controller plays the role of the integrations page: it is the single owner
// of the connection dialog and its poll timer.
type Controller struct {
	api      API
	registry Registry
	opener   Opener
	recorder AttemptRecorder
	poller   *Poller
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	dialog   Dialog
	attempt  models.SetupAttempt
	errMsg   string
	busy     bool
	authURL  string
	shutdown bool
	updates  chan Event
}

// NewController wires a controller to the backend and the registry.
func NewController(backend API, registry Registry, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	opener := opts.Opener
	if opener == nil {
		opener = BrowserOpener{}
	}

	c := &Controller{
		api:      backend,
		registry: registry,
		opener:   opener,
		recorder: opts.Recorder,
		logger:   logger.WithPrefix("setup"),
		now:      time.Now,
		updates:  make(chan Event, 1),
	}
	c.poller = NewPoller(backend.CallbackStatus, opts.PollInterval, opts.PollTimeout, c.logger)
	return c
}

// Updates delivers the latest state snapshot. Only the newest pending snapshot
// is kept. The channel is closed by Shutdown.
func (c *Controller) Updates() <-chan Event {
	return c.updates
}

// Snapshot returns the current page state.
func (c *Controller) Snapshot() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Dialog returns the current dialog state.
func (c *Controller) Dialog() Dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog
}

// Err returns the shared error message, empty when there is none.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// ClearError empties the shared error slot.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
}

// Busy reports whether a dialog request is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Polling reports whether the status poller is running.
func (c *Controller) Polling() bool {
	return c.poller.Running()
}

// Integrations returns the cached integration list.
func (c *Controller) Integrations() []models.CalendarIntegration {
	return c.registry.Integrations()
}

// CanConfirm reports whether selection may be submitted right now.
func (c *Controller) CanConfirm(selection string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.dialog.Step != StepSelectingCalendar || selection == "" {
		return false
	}
	_, ok := c.dialog.Option(selection)
	return ok
}

// ConnectProvider starts connecting a calendar provider. Google and Outlook get
// an authorization URL opened in the browser followed by status polling;
// Calendly opens the dialog at the token entry step.
func (c *Controller) ConnectProvider(ctx context.Context, provider models.Provider) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrNoDialog
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	cancelled, hadDialog := c.closeLocked()
	c.errMsg = ""

	if !provider.UsesOAuthPopup() {
		rec := c.beginLocked(provider)
		c.mu.Unlock()

		c.poller.Stop()
		if hadDialog {
			c.record(cancelled)
		}
		c.record(rec)
		c.publish()
		return nil
	}

	c.busy = true
	c.mu.Unlock()

	c.poller.Stop()
	if hadDialog {
		c.record(cancelled)
	}
	c.publish()

	authURL, err := c.api.Authorize(ctx, provider)

	c.mu.Lock()
	if err != nil {
		c.busy = false
		c.errMsg = api.Message(err)
		c.mu.Unlock()
		c.logger.Error("authorization request failed", "provider", provider, "err", err)
		c.publish()
		return fmt.Errorf("failed to authorize %s: %w", provider, err)
	}
	if c.shutdown {
		c.busy = false
		c.mu.Unlock()
		return nil
	}
	// busy holds until the poll is running.
	c.mu.Unlock()

	if err := c.opener.Open(authURL); err != nil {
		c.logger.Warn("could not open browser, visit the URL manually", "url", authURL, "err", err)
	}

	c.mu.Lock()
	c.busy = false
	if c.shutdown {
		c.mu.Unlock()
		c.logger.Debug("unmounted before polling started", "provider", provider)
		return nil
	}
	rec := c.beginLocked(provider)
	c.authURL = authURL
	attemptID := c.dialog.AttemptID
	// The poll starts under mu; a later Shutdown or CloseDialog stops it.
	c.poller.Start(provider, PollCallbacks{
		Ready:   func(status models.OAuthCallbackStatus) { c.handleReady(attemptID, status) },
		Expired: func() { c.handleExpired(attemptID) },
	})
	c.mu.Unlock()

	c.record(rec)
	c.logger.Info("waiting for authorization", "provider", provider, "interval", c.poller.Interval())
	c.publish()
	return nil
}

func (c *Controller) handleReady(attemptID string, status models.OAuthCallbackStatus) {
	c.mu.Lock()
	if c.shutdown || c.dialog.AttemptID != attemptID {
		c.mu.Unlock()
		c.logger.Debug("ignoring callback status for a closed dialog", "attempt", attemptID)
		return
	}
	next, ok := c.dialog.Resolve(status)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.dialog = next
	c.authURL = ""
	rec := c.touchLocked(models.OutcomePending, "")
	rec.IntegrationID = next.IntegrationID
	c.attempt = rec
	c.mu.Unlock()

	c.logger.Info("authorization completed", "provider", next.Provider, "calendars", len(next.Calendars))
	c.record(rec)
	c.publish()
}

func (c *Controller) handleExpired(attemptID string) {
	c.mu.Lock()
	if c.shutdown || c.dialog.AttemptID != attemptID || !c.dialog.Polling() {
		c.mu.Unlock()
		return
	}
	c.errMsg = "Authorization was not completed in time. Try connecting again."
	rec := c.touchLocked(models.OutcomeExpired, c.errMsg)
	c.dialog = c.dialog.Close()
	c.authURL = ""
	c.mu.Unlock()

	c.record(rec)
	c.publish()
}

// SetupCalendly submits a Calendly personal access token from the token step.
func (c *Controller) SetupCalendly(ctx context.Context, token string) error {
	c.mu.Lock()
	d := c.dialog
	switch {
	case !d.Open():
		c.mu.Unlock()
		return ErrNoDialog
	case d.Step != StepInitial || d.Provider != models.ProviderCalendly:
		c.mu.Unlock()
		return fmt.Errorf("%w: calendly setup at step %s", ErrInvalidTransition, d.Step)
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.errMsg = "Enter your Calendly personal access token."
		c.mu.Unlock()
		c.publish()
		return ErrEmptyToken
	}
	c.busy = true
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()

	resp, err := c.api.SetupCalendly(ctx, token)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		if c.dialog.AttemptID == d.AttemptID {
			c.errMsg = api.Message(err)
		}
		c.mu.Unlock()
		c.logger.Error("calendly setup failed", "err", err)
		c.publish()
		return fmt.Errorf("failed to set up calendly: %w", err)
	}
	if c.dialog.AttemptID != d.AttemptID {
		c.mu.Unlock()
		c.logger.Debug("ignoring calendly setup response for a closed dialog", "attempt", d.AttemptID)
		return nil
	}

	next, err := c.dialog.OfferEventTypes(resp.IntegrationID, resp.EventTypes)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	outcome := models.OutcomePending
	if !next.Open() {
		outcome = models.OutcomeConnected
	}
	rec := c.touchLocked(outcome, "")
	rec.IntegrationID = resp.IntegrationID
	if !next.Open() {
		rec.Step = StepClosed.String()
	} else {
		rec.Step = next.Step.String()
	}
	c.attempt = rec
	c.dialog = next
	c.mu.Unlock()

	c.record(rec)
	c.publish()

	if !next.Open() {
		c.logger.Info("calendly connected without event types", "integration_id", resp.IntegrationID)
		return c.Refresh(ctx)
	}
	return nil
}

// Confirm submits the chosen calendar (or Calendly event type) and finalizes
// the integration. On success the dialog closes and the registry is refreshed.
func (c *Controller) Confirm(ctx context.Context, optionID string) error {
	c.mu.Lock()
	d := c.dialog
	switch {
	case !d.Open():
		c.mu.Unlock()
		return ErrNoDialog
	case d.Step != StepSelectingCalendar:
		c.mu.Unlock()
		return fmt.Errorf("%w: confirm at step %s", ErrInvalidTransition, d.Step)
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	}
	if _, ok := d.Option(optionID); optionID == "" || !ok {
		c.mu.Unlock()
		return ErrInvalidSelection
	}
	c.busy = true
	c.errMsg = ""
	rec := c.attempt
	c.mu.Unlock()
	c.publish()

	var err error
	if d.Provider == models.ProviderCalendly {
		err = c.api.SelectEventType(ctx, d.IntegrationID, optionID)
	} else {
		err = c.api.SelectCalendar(ctx, d.Provider, d.IntegrationID, optionID)
	}
	if err != nil {
		c.mu.Lock()
		c.busy = false
		if c.dialog.AttemptID == d.AttemptID {
			c.errMsg = api.Message(err)
		}
		c.mu.Unlock()
		c.logger.Error("calendar selection failed", "provider", d.Provider, "integration_id", d.IntegrationID, "err", err)
		c.publish()
		return fmt.Errorf("failed to select calendar: %w", err)
	}

	// Only the OAuth providers mark the onboarding step here.
	if d.Provider.UsesOAuthPopup() {
		if err := c.api.CompleteOnboardingStep(ctx, models.OnboardingStepCalendarConnection); err != nil {
			c.logger.Warn("failed to mark onboarding step complete", "step", models.OnboardingStepCalendarConnection, "err", err)
		}
	}

	c.mu.Lock()
	c.busy = false
	if c.dialog.AttemptID == d.AttemptID {
		c.dialog = c.dialog.Close()
		c.authURL = ""
	}
	rec.Step = StepClosed.String()
	rec.Outcome = models.OutcomeConnected
	rec.Error = ""
	rec.UpdatedAt = c.now()
	c.mu.Unlock()

	c.logger.Info("calendar connected", "provider", d.Provider, "integration_id", d.IntegrationID)
	c.record(rec)
	c.publish()
	return c.Refresh(ctx)
}

// CloseDialog closes the dialog and clears the poll timer. No status request
// is issued once it returns.
func (c *Controller) CloseDialog() {
	c.mu.Lock()
	rec, had := c.closeLocked()
	c.mu.Unlock()

	c.poller.Stop()
	if had {
		c.record(rec)
		c.publish()
	}
}

// Shutdown is the unmount path: it closes the dialog, stops polling, and ends
// the update stream.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	rec, had := c.closeLocked()
	if !c.shutdown {
		c.shutdown = true
		close(c.updates)
	}
	c.mu.Unlock()

	c.poller.Stop()
	if had {
		c.record(rec)
	}
}

// Refresh reloads the integration list, recording failures in the error slot.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.registry.Refresh(ctx); err != nil {
		c.setError(err)
		c.logger.Error("failed to load integrations", "err", err)
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	c.publish()
	return nil
}

// RemoveIntegration deletes an integration and drops it from the list.
func (c *Controller) RemoveIntegration(ctx context.Context, id string) error {
	if err := c.registry.Remove(ctx, id); err != nil {
		c.setError(err)
		c.logger.Error("failed to remove integration", "id", id, "err", err)
		return fmt.Errorf("failed to remove integration %s: %w", id, err)
	}
	c.logger.Info("integration removed", "id", id)
	c.publish()
	return nil
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.errMsg = api.Message(err)
	c.mu.Unlock()
	c.publish()
}

// beginLocked opens a fresh dialog and returns the attempt record to persist.
func (c *Controller) beginLocked(provider models.Provider) models.SetupAttempt {
	now := c.now()
	c.dialog = Begin(provider, ulid.Make().String())
	c.attempt = models.SetupAttempt{
		ID:        c.dialog.AttemptID,
		Provider:  provider,
		Step:      c.dialog.Step.String(),
		Outcome:   models.OutcomePending,
		StartedAt: now,
		UpdatedAt: now,
	}
	return c.attempt
}

// closeLocked closes an open dialog, returning the cancelled attempt record.
func (c *Controller) closeLocked() (models.SetupAttempt, bool) {
	if !c.dialog.Open() {
		return models.SetupAttempt{}, false
	}
	rec := c.touchLocked(models.OutcomeCancelled, "")
	rec.Step = StepClosed.String()
	c.dialog = c.dialog.Close()
	c.authURL = ""
	c.attempt = models.SetupAttempt{}
	return rec, true
}

func (c *Controller) touchLocked(outcome, errMsg string) models.SetupAttempt {
	rec := c.attempt
	rec.Step = c.dialog.Step.String()
	rec.Outcome = outcome
	rec.Error = errMsg
	rec.UpdatedAt = c.now()
	return rec
}

func (c *Controller) record(rec models.SetupAttempt) {
	if c.recorder == nil || rec.ID == "" {
		return
	}
	if err := c.recorder.RecordAttempt(context.Background(), rec); err != nil {
		c.logger.Warn("failed to record setup attempt", "attempt", rec.ID, "err", err)
	}
}

func (c *Controller) snapshotLocked() Event {
	return Event{
		Dialog:           c.dialog,
		Err:              c.errMsg,
		Busy:             c.busy,
		AuthorizationURL: c.authURL,
	}
}

// publish replaces any unread snapshot with the current one.
func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	ev := c.snapshotLocked()
	select {
	case c.updates <- ev:
	default:
		select {
		case <-c.updates:
		default:
		}
		c.updates <- ev
	}
}
