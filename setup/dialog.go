// ABOUTME: Connection dialog state machine for calendar integrations
// ABOUTME: Transition functions return the next Dialog value instead of mutating in place
package setup

import (
	"errors"
	"fmt"

	"github.com/harperreed/textback/models"
)

// Step is the current stage of the connection dialog.
type Step int

const (
	StepClosed Step = iota
	StepInitial
	StepAwaitingAuthorization
	StepSelectingCalendar
)

func (s Step) String() string {
	switch s {
	case StepClosed:
		return "closed"
	case StepInitial:
		return "initial"
	case StepAwaitingAuthorization:
		return "polling"
	case StepSelectingCalendar:
		return "select-calendar"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ErrInvalidTransition is returned when a transition does not apply to the current step.
var ErrInvalidTransition = errors.New("invalid dialog transition")

// Dialog is the single connection dialog. The zero value is closed.
type Dialog struct {
	Step          Step
	Provider      models.Provider
	Calendars     []models.CalendarOption
	IntegrationID string

	// AttemptID identifies this dialog lifetime so late results from an
	// earlier one can be told apart.
	AttemptID string
}

// Begin opens the dialog for provider. OAuth providers wait for authorization;
// Calendly starts at the token entry step.
func Begin(provider models.Provider, attemptID string) Dialog {
	step := StepInitial
	if provider.UsesOAuthPopup() {
		step = StepAwaitingAuthorization
	}
	return Dialog{Step: step, Provider: provider, AttemptID: attemptID}
}

// Open reports whether the dialog is showing.
func (d Dialog) Open() bool {
	return d.Step != StepClosed
}

// Polling reports whether the callback-status poller should be running.
func (d Dialog) Polling() bool {
	return d.Step == StepAwaitingAuthorization
}

// Resolve applies a callback-status result. Only a ready status received while
// awaiting authorization advances to calendar selection.
func (d Dialog) Resolve(status models.OAuthCallbackStatus) (Dialog, bool) {
	if d.Step != StepAwaitingAuthorization || !status.Ready() {
		return d, false
	}
	next := d
	next.Step = StepSelectingCalendar
	next.Calendars = append([]models.CalendarOption(nil), status.Calendars...)
	next.IntegrationID = status.IntegrationID
	return next, true
}

// OfferEventTypes applies the Calendly setup response. An empty list closes the
// dialog since there is nothing to choose.
func (d Dialog) OfferEventTypes(integrationID string, types []models.EventType) (Dialog, error) {
	if d.Step != StepInitial || d.Provider != models.ProviderCalendly {
		return d, fmt.Errorf("%w: event types offered at step %s", ErrInvalidTransition, d.Step)
	}
	if len(types) == 0 {
		return d.Close(), nil
	}
	next := d
	next.Step = StepSelectingCalendar
	next.Calendars = models.EventTypeOptions(types)
	next.IntegrationID = integrationID
	return next, nil
}

// Close returns the closed dialog.
func (d Dialog) Close() Dialog {
	return Dialog{}
}

// Option looks up an offered calendar by id.
func (d Dialog) Option(id string) (models.CalendarOption, bool) {
	for _, opt := range d.Calendars {
		if opt.ID == id {
			return opt, true
		}
	}
	return models.CalendarOption{}, false
}
