// ABOUTME: Tests for calendar MCP tool handlers
// ABOUTME: Validates tool input/output, onboarding rules, and error handling
package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/textback/models"
)

type stubBackend struct {
	mu sync.Mutex

	authorizeURL string
	statuses     []*models.OAuthCallbackStatus
	statusCalls  int
	calendly     *models.CalendlySetupResponse
	selectErr    error

	selected   []string
	eventTypes []string
	onboarding []string
}

func (s *stubBackend) Authorize(context.Context, models.Provider) (string, error) {
	return s.authorizeURL, nil
}

func (s *stubBackend) CallbackStatus(context.Context, models.Provider) (*models.OAuthCallbackStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if len(s.statuses) == 0 {
		return &models.OAuthCallbackStatus{Success: false}, nil
	}
	status := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return status, nil
}

func (s *stubBackend) SelectCalendar(_ context.Context, p models.Provider, integrationID, calendarID string) error {
	s.selected = append(s.selected, string(p)+"/"+integrationID+"/"+calendarID)
	return s.selectErr
}

func (s *stubBackend) SetupCalendly(context.Context, string) (*models.CalendlySetupResponse, error) {
	return s.calendly, nil
}

func (s *stubBackend) SelectEventType(_ context.Context, integrationID, uri string) error {
	s.eventTypes = append(s.eventTypes, integrationID+"/"+uri)
	return s.selectErr
}

func (s *stubBackend) CompleteOnboardingStep(_ context.Context, step string) error {
	s.onboarding = append(s.onboarding, step)
	return errors.New("no business id configured")
}

type stubRegistry struct {
	list      []models.CalendarIntegration
	refreshes int
	removed   []string
}

func (r *stubRegistry) Refresh(context.Context) error {
	r.refreshes++
	return nil
}

func (r *stubRegistry) Remove(_ context.Context, id string) error {
	r.removed = append(r.removed, id)
	return nil
}

func (r *stubRegistry) Integrations() []models.CalendarIntegration {
	return r.list
}

func newCalendarHandlers(backend *stubBackend, reg *stubRegistry) *CalendarHandlers {
	return NewCalendarHandlers(backend, reg, 10*time.Millisecond, log.New(io.Discard))
}

func TestListIntegrationsHandler(t *testing.T) {
	synced := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	status := "ok"
	reg := &stubRegistry{list: []models.CalendarIntegration{
		{ID: "a", Provider: models.ProviderGoogle, IsPrimary: true, SyncDirection: models.SyncDirectionTwoWay, LastSyncAt: &synced, LastSyncStatus: &status},
	}}
	h := newCalendarHandlers(&stubBackend{}, reg)

	_, out, err := h.ListIntegrations(context.Background(), &mcp.CallToolRequest{}, ListIntegrationsInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.refreshes)
	require.Len(t, out.Integrations, 1)
	assert.Equal(t, "google", out.Integrations[0].Provider)
	assert.Equal(t, "2026-01-02T03:04:05Z", out.Integrations[0].LastSyncAt)
	assert.Equal(t, "ok", out.Integrations[0].LastSyncStatus)
	assert.False(t, out.Stale)

	_, out, err = h.ListIntegrations(context.Background(), &mcp.CallToolRequest{}, ListIntegrationsInput{Cached: true})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.refreshes, "cached listing does not refresh")
	assert.True(t, out.Stale)
}

func TestRemoveIntegrationHandler(t *testing.T) {
	reg := &stubRegistry{}
	h := newCalendarHandlers(&stubBackend{}, reg)

	_, _, err := h.RemoveIntegration(context.Background(), &mcp.CallToolRequest{}, RemoveIntegrationInput{})
	assert.Error(t, err)

	_, out, err := h.RemoveIntegration(context.Background(), &mcp.CallToolRequest{}, RemoveIntegrationInput{ID: "X"})
	require.NoError(t, err)
	assert.Equal(t, "X", out.Removed)
	assert.Equal(t, []string{"X"}, reg.removed)
}

func TestStartAuthorizationHandler(t *testing.T) {
	h := newCalendarHandlers(&stubBackend{authorizeURL: "https://login.example.com/auth"}, &stubRegistry{})

	_, out, err := h.StartAuthorization(context.Background(), &mcp.CallToolRequest{}, StartAuthorizationInput{Provider: "Outlook"})
	require.NoError(t, err)
	assert.Equal(t, "outlook", out.Provider)
	assert.Equal(t, "https://login.example.com/auth", out.AuthorizationURL)

	_, _, err = h.StartAuthorization(context.Background(), &mcp.CallToolRequest{}, StartAuthorizationInput{Provider: "calendly"})
	assert.Error(t, err, "calendly has no browser authorization")

	_, _, err = h.StartAuthorization(context.Background(), &mcp.CallToolRequest{}, StartAuthorizationInput{Provider: "icloud"})
	assert.Error(t, err)
}

func TestCheckAuthorizationSingleShot(t *testing.T) {
	backend := &stubBackend{}
	h := newCalendarHandlers(backend, &stubRegistry{})

	_, out, err := h.CheckAuthorization(context.Background(), &mcp.CallToolRequest{}, CheckAuthorizationInput{Provider: "google"})
	require.NoError(t, err)
	assert.False(t, out.Ready)
	assert.Equal(t, 1, backend.statusCalls)
}

func TestCheckAuthorizationWaitsForReady(t *testing.T) {
	backend := &stubBackend{statuses: []*models.OAuthCallbackStatus{
		{Success: false},
		{Success: false},
		{Success: true, IntegrationID: "abc", Calendars: []models.CalendarOption{{ID: "cal1", Name: "Primary"}}},
	}}
	h := newCalendarHandlers(backend, &stubRegistry{})

	_, out, err := h.CheckAuthorization(context.Background(), &mcp.CallToolRequest{}, CheckAuthorizationInput{Provider: "google", WaitSeconds: 5})
	require.NoError(t, err)
	assert.True(t, out.Ready)
	assert.Equal(t, "abc", out.IntegrationID)
	require.Len(t, out.Calendars, 1)
	assert.Equal(t, "cal1", out.Calendars[0].ID)
}

func TestCheckAuthorizationHonorsContext(t *testing.T) {
	h := newCalendarHandlers(&stubBackend{}, &stubRegistry{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := h.CheckAuthorization(ctx, &mcp.CallToolRequest{}, CheckAuthorizationInput{Provider: "google", WaitSeconds: 60})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSelectCalendarHandler(t *testing.T) {
	backend := &stubBackend{}
	reg := &stubRegistry{}
	h := newCalendarHandlers(backend, reg)

	_, out, err := h.SelectCalendar(context.Background(), &mcp.CallToolRequest{}, SelectCalendarInput{
		Provider: "google", IntegrationID: "abc", CalendarID: "cal1",
	})
	require.NoError(t, err, "onboarding failure is not surfaced")
	assert.True(t, out.Connected)
	assert.Equal(t, []string{"google/abc/cal1"}, backend.selected)
	assert.Equal(t, []string{models.OnboardingStepCalendarConnection}, backend.onboarding)
	assert.Equal(t, 1, reg.refreshes)
}

func TestSelectCalendarFailure(t *testing.T) {
	backend := &stubBackend{selectErr: errors.New("calendar not found")}
	reg := &stubRegistry{}
	h := newCalendarHandlers(backend, reg)

	_, _, err := h.SelectCalendar(context.Background(), &mcp.CallToolRequest{}, SelectCalendarInput{
		Provider: "outlook", IntegrationID: "abc", CalendarID: "cal1",
	})
	require.Error(t, err)
	assert.Empty(t, backend.onboarding)
	assert.Zero(t, reg.refreshes)

	_, _, err = h.SelectCalendar(context.Background(), &mcp.CallToolRequest{}, SelectCalendarInput{Provider: "outlook"})
	assert.Error(t, err)
}

func TestSetupCalendlyHandler(t *testing.T) {
	backend := &stubBackend{calendly: &models.CalendlySetupResponse{
		IntegrationID: "cly-1",
		EventTypes:    []models.EventType{{URI: "uri-a", Name: "Intro", Duration: 15}},
	}}
	reg := &stubRegistry{}
	h := newCalendarHandlers(backend, reg)

	_, _, err := h.SetupCalendly(context.Background(), &mcp.CallToolRequest{}, SetupCalendlyInput{PersonalAccessToken: "  "})
	assert.Error(t, err)

	_, out, err := h.SetupCalendly(context.Background(), &mcp.CallToolRequest{}, SetupCalendlyInput{PersonalAccessToken: "pat"})
	require.NoError(t, err)
	assert.False(t, out.Connected)
	require.Len(t, out.EventTypes, 1)
	assert.Equal(t, "15 min", out.EventTypes[0].Description)
	assert.Zero(t, reg.refreshes)

	_, done, err := h.SelectEventType(context.Background(), &mcp.CallToolRequest{}, SelectEventTypeInput{IntegrationID: "cly-1", EventTypeURI: "uri-a"})
	require.NoError(t, err)
	assert.True(t, done.Connected)
	assert.Equal(t, []string{"cly-1/uri-a"}, backend.eventTypes)
	assert.Empty(t, backend.onboarding, "calendly does not mark onboarding")
	assert.Equal(t, 1, reg.refreshes)
}

func TestSetupCalendlyWithoutEventTypes(t *testing.T) {
	backend := &stubBackend{calendly: &models.CalendlySetupResponse{IntegrationID: "cly-2"}}
	reg := &stubRegistry{}
	h := newCalendarHandlers(backend, reg)

	_, out, err := h.SetupCalendly(context.Background(), &mcp.CallToolRequest{}, SetupCalendlyInput{PersonalAccessToken: "pat"})
	require.NoError(t, err)
	assert.True(t, out.Connected)
	assert.Empty(t, out.EventTypes)
	assert.Equal(t, 1, reg.refreshes)
}
