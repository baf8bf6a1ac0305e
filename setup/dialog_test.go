// ABOUTME: Tests for the connection dialog state machine
// ABOUTME: Checks each transition and that invalid transitions leave the state alone
package setup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/textback/models"
)

func TestStepString(t *testing.T) {
	assert.Equal(t, "closed", StepClosed.String())
	assert.Equal(t, "initial", StepInitial.String())
	assert.Equal(t, "polling", StepAwaitingAuthorization.String())
	assert.Equal(t, "select-calendar", StepSelectingCalendar.String())
}

func TestZeroDialogIsClosed(t *testing.T) {
	var d Dialog
	assert.False(t, d.Open())
	assert.False(t, d.Polling())
}

func TestBegin(t *testing.T) {
	for _, p := range []models.Provider{models.ProviderGoogle, models.ProviderOutlook} {
		d := Begin(p, "attempt")
		assert.Equal(t, StepAwaitingAuthorization, d.Step)
		assert.Equal(t, p, d.Provider)
		assert.True(t, d.Polling())
	}

	d := Begin(models.ProviderCalendly, "attempt")
	assert.Equal(t, StepInitial, d.Step)
	assert.False(t, d.Polling())
	assert.True(t, d.Open())
}

func TestResolve(t *testing.T) {
	d := Begin(models.ProviderGoogle, "attempt")

	same, moved := d.Resolve(models.OAuthCallbackStatus{Success: false})
	assert.False(t, moved)
	assert.Equal(t, d.Step, same.Step)

	same, moved = d.Resolve(models.OAuthCallbackStatus{Success: true})
	assert.False(t, moved, "success without calendars keeps waiting")
	assert.True(t, same.Polling())

	next, moved := d.Resolve(models.OAuthCallbackStatus{
		Success:       true,
		IntegrationID: "abc",
		Calendars:     []models.CalendarOption{{ID: "cal1", Name: "Primary"}},
	})
	require.True(t, moved)
	assert.Equal(t, StepSelectingCalendar, next.Step)
	assert.Equal(t, "abc", next.IntegrationID)
	assert.Equal(t, "attempt", next.AttemptID)
	assert.False(t, next.Polling())
	assert.True(t, d.Polling(), "original value must not change")
}

func TestResolveIgnoredOutsidePolling(t *testing.T) {
	d := Begin(models.ProviderCalendly, "attempt")
	_, moved := d.Resolve(models.OAuthCallbackStatus{
		Success:   true,
		Calendars: []models.CalendarOption{{ID: "cal1"}},
	})
	assert.False(t, moved)
}

func TestOfferEventTypes(t *testing.T) {
	d := Begin(models.ProviderCalendly, "attempt")

	next, err := d.OfferEventTypes("cly-1", []models.EventType{{URI: "uri-a", Name: "Intro"}})
	require.NoError(t, err)
	assert.Equal(t, StepSelectingCalendar, next.Step)
	assert.Equal(t, "cly-1", next.IntegrationID)
	opt, ok := next.Option("uri-a")
	require.True(t, ok)
	assert.Equal(t, "Intro", opt.Name)

	closed, err := d.OfferEventTypes("cly-1", nil)
	require.NoError(t, err)
	assert.False(t, closed.Open(), "no event types closes the dialog")
}

func TestOfferEventTypesInvalid(t *testing.T) {
	d := Begin(models.ProviderGoogle, "attempt")
	same, err := d.OfferEventTypes("x", []models.EventType{{URI: "u"}})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, d.Step, same.Step)
}

func TestClose(t *testing.T) {
	d := Begin(models.ProviderOutlook, "attempt")
	closed := d.Close()
	assert.False(t, closed.Open())
	assert.Empty(t, closed.AttemptID)
	assert.Empty(t, closed.Calendars)
}

func TestOptionLookup(t *testing.T) {
	d := Dialog{Calendars: []models.CalendarOption{{ID: "a", Name: "A"}}}
	_, ok := d.Option("b")
	assert.False(t, ok)
	opt, ok := d.Option("a")
	assert.True(t, ok)
	assert.Equal(t, "A", opt.Name)
}
