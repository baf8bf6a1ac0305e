// ABOUTME: Calendar integration MCP tool handlers
// ABOUTME: Lists, removes, and connects Google, Outlook, and Calendly integrations
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/textback/models"
	"github.com/harperreed/textback/setup"
)

// MaxWaitSeconds caps how long check_calendar_authorization may block.
const MaxWaitSeconds = 120

type CalendarHandlers struct {
	backend      setup.API
	registry     setup.Registry
	pollInterval time.Duration
	logger       *log.Logger
}

func NewCalendarHandlers(backend setup.API, registry setup.Registry, pollInterval time.Duration, logger *log.Logger) *CalendarHandlers {
	if logger == nil {
		logger = log.Default()
	}
	return &CalendarHandlers{
		backend:      backend,
		registry:     registry,
		pollInterval: pollInterval,
		logger:       logger.WithPrefix("mcp"),
	}
}

type IntegrationOutput struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	IsPrimary      bool   `json:"is_primary"`
	SyncDirection  string `json:"sync_direction"`
	LastSyncAt     string `json:"last_sync_at,omitempty"`
	LastSyncStatus string `json:"last_sync_status,omitempty"`
}

type ListIntegrationsInput struct {
	Cached bool `json:"cached,omitempty" jsonschema:"Return the last fetched list without contacting the server"`
}

type ListIntegrationsOutput struct {
	Integrations []IntegrationOutput `json:"integrations"`
	Stale        bool                `json:"stale,omitempty"`
}

func (h *CalendarHandlers) ListIntegrations(ctx context.Context, _ *mcp.CallToolRequest, input ListIntegrationsInput) (*mcp.CallToolResult, ListIntegrationsOutput, error) {
	stale := input.Cached
	if !input.Cached {
		if err := h.registry.Refresh(ctx); err != nil {
			return nil, ListIntegrationsOutput{}, fmt.Errorf("failed to list integrations: %w", err)
		}
	}

	integrations := h.registry.Integrations()
	out := ListIntegrationsOutput{Integrations: make([]IntegrationOutput, len(integrations)), Stale: stale}
	for i, integration := range integrations {
		out.Integrations[i] = integrationToOutput(integration)
	}
	return nil, out, nil
}

type RemoveIntegrationInput struct {
	ID string `json:"id" jsonschema:"Integration id to remove (required)"`
}

type RemoveIntegrationOutput struct {
	Removed string `json:"removed"`
}

func (h *CalendarHandlers) RemoveIntegration(ctx context.Context, _ *mcp.CallToolRequest, input RemoveIntegrationInput) (*mcp.CallToolResult, RemoveIntegrationOutput, error) {
	if input.ID == "" {
		return nil, RemoveIntegrationOutput{}, fmt.Errorf("id is required")
	}
	if err := h.registry.Remove(ctx, input.ID); err != nil {
		return nil, RemoveIntegrationOutput{}, fmt.Errorf("failed to remove integration: %w", err)
	}
	h.logger.Info("integration removed", "id", input.ID)
	return nil, RemoveIntegrationOutput{Removed: input.ID}, nil
}

type StartAuthorizationInput struct {
	Provider string `json:"provider" jsonschema:"Calendar provider: google or outlook (required)"`
}

type StartAuthorizationOutput struct {
	Provider         string `json:"provider"`
	AuthorizationURL string `json:"authorization_url"`
	Next             string `json:"next"`
}

func (h *CalendarHandlers) StartAuthorization(ctx context.Context, _ *mcp.CallToolRequest, input StartAuthorizationInput) (*mcp.CallToolResult, StartAuthorizationOutput, error) {
	provider, err := oauthProvider(input.Provider)
	if err != nil {
		return nil, StartAuthorizationOutput{}, err
	}

	authURL, err := h.backend.Authorize(ctx, provider)
	if err != nil {
		return nil, StartAuthorizationOutput{}, fmt.Errorf("failed to start authorization: %w", err)
	}

	return nil, StartAuthorizationOutput{
		Provider:         string(provider),
		AuthorizationURL: authURL,
		Next:             "Open the URL in a browser, then call check_calendar_authorization until it reports ready.",
	}, nil
}

type CheckAuthorizationInput struct {
	Provider    string `json:"provider" jsonschema:"Calendar provider: google or outlook (required)"`
	WaitSeconds int    `json:"wait_seconds,omitempty" jsonschema:"Keep polling up to this many seconds for the authorization to finish (max 120)"`
}

type CheckAuthorizationOutput struct {
	Ready         bool                    `json:"ready"`
	IntegrationID string                  `json:"integration_id,omitempty"`
	Calendars     []models.CalendarOption `json:"calendars,omitempty"`
	Message       string                  `json:"message,omitempty"`
}

func (h *CalendarHandlers) CheckAuthorization(ctx context.Context, _ *mcp.CallToolRequest, input CheckAuthorizationInput) (*mcp.CallToolResult, CheckAuthorizationOutput, error) {
	provider, err := oauthProvider(input.Provider)
	if err != nil {
		return nil, CheckAuthorizationOutput{}, err
	}

	if input.WaitSeconds <= 0 {
		status, err := h.backend.CallbackStatus(ctx, provider)
		if err != nil {
			return nil, CheckAuthorizationOutput{}, fmt.Errorf("failed to check authorization: %w", err)
		}
		return nil, statusToOutput(status), nil
	}

	wait := input.WaitSeconds
	if wait > MaxWaitSeconds {
		wait = MaxWaitSeconds
	}

	ready := make(chan models.OAuthCallbackStatus, 1)
	expired := make(chan struct{})
	poller := setup.NewPoller(h.backend.CallbackStatus, h.pollInterval, time.Duration(wait)*time.Second, h.logger)
	poller.Start(provider, setup.PollCallbacks{
		Ready:   func(status models.OAuthCallbackStatus) { ready <- status },
		Expired: func() { close(expired) },
	})
	defer poller.Stop()

	select {
	case status := <-ready:
		return nil, statusToOutput(&status), nil
	case <-expired:
		return nil, CheckAuthorizationOutput{Message: fmt.Sprintf("Authorization not completed after %ds", wait)}, nil
	case <-ctx.Done():
		return nil, CheckAuthorizationOutput{}, ctx.Err()
	}
}

type SelectCalendarInput struct {
	Provider      string `json:"provider" jsonschema:"Calendar provider: google or outlook (required)"`
	IntegrationID string `json:"integration_id" jsonschema:"Integration id from check_calendar_authorization (required)"`
	CalendarID    string `json:"calendar_id" jsonschema:"Calendar id to sync (required)"`
}

type ConnectedOutput struct {
	Connected     bool   `json:"connected"`
	IntegrationID string `json:"integration_id"`
	Warning       string `json:"warning,omitempty"`
}

func (h *CalendarHandlers) SelectCalendar(ctx context.Context, _ *mcp.CallToolRequest, input SelectCalendarInput) (*mcp.CallToolResult, ConnectedOutput, error) {
	provider, err := oauthProvider(input.Provider)
	if err != nil {
		return nil, ConnectedOutput{}, err
	}
	if input.IntegrationID == "" || input.CalendarID == "" {
		return nil, ConnectedOutput{}, fmt.Errorf("integration_id and calendar_id are required")
	}

	if err := h.backend.SelectCalendar(ctx, provider, input.IntegrationID, input.CalendarID); err != nil {
		return nil, ConnectedOutput{}, fmt.Errorf("failed to select calendar: %w", err)
	}

	if err := h.backend.CompleteOnboardingStep(ctx, models.OnboardingStepCalendarConnection); err != nil {
		h.logger.Warn("failed to mark onboarding step complete", "step", models.OnboardingStepCalendarConnection, "err", err)
	}

	return nil, h.connected(ctx, input.IntegrationID), nil
}

type SetupCalendlyInput struct {
	PersonalAccessToken string `json:"personal_access_token" jsonschema:"Calendly personal access token (required)"`
}

type SetupCalendlyOutput struct {
	IntegrationID string                  `json:"integration_id"`
	EventTypes    []models.CalendarOption `json:"event_types"`
	Connected     bool                    `json:"connected"`
	Warning       string                  `json:"warning,omitempty"`
}

func (h *CalendarHandlers) SetupCalendly(ctx context.Context, _ *mcp.CallToolRequest, input SetupCalendlyInput) (*mcp.CallToolResult, SetupCalendlyOutput, error) {
	token := strings.TrimSpace(input.PersonalAccessToken)
	if token == "" {
		return nil, SetupCalendlyOutput{}, fmt.Errorf("personal_access_token is required")
	}

	resp, err := h.backend.SetupCalendly(ctx, token)
	if err != nil {
		return nil, SetupCalendlyOutput{}, fmt.Errorf("failed to set up calendly: %w", err)
	}

	out := SetupCalendlyOutput{
		IntegrationID: resp.IntegrationID,
		EventTypes:    models.EventTypeOptions(resp.EventTypes),
	}
	// Nothing to choose means the integration is already live
	if len(resp.EventTypes) == 0 {
		done := h.connected(ctx, resp.IntegrationID)
		out.Connected = true
		out.Warning = done.Warning
	}
	return nil, out, nil
}

type SelectEventTypeInput struct {
	IntegrationID string `json:"integration_id" jsonschema:"Calendly integration id from setup_calendly (required)"`
	EventTypeURI  string `json:"event_type_uri" jsonschema:"Event type URI to use for bookings (required)"`
}

func (h *CalendarHandlers) SelectEventType(ctx context.Context, _ *mcp.CallToolRequest, input SelectEventTypeInput) (*mcp.CallToolResult, ConnectedOutput, error) {
	if input.IntegrationID == "" || input.EventTypeURI == "" {
		return nil, ConnectedOutput{}, fmt.Errorf("integration_id and event_type_uri are required")
	}

	if err := h.backend.SelectEventType(ctx, input.IntegrationID, input.EventTypeURI); err != nil {
		return nil, ConnectedOutput{}, fmt.Errorf("failed to select event type: %w", err)
	}

	return nil, h.connected(ctx, input.IntegrationID), nil
}

// connected refreshes the registry once after a successful connection.
func (h *CalendarHandlers) connected(ctx context.Context, integrationID string) ConnectedOutput {
	out := ConnectedOutput{Connected: true, IntegrationID: integrationID}
	if err := h.registry.Refresh(ctx); err != nil {
		h.logger.Warn("failed to refresh integrations", "err", err)
		out.Warning = "connected, but the integration list could not be refreshed"
	}
	return out
}

func oauthProvider(name string) (models.Provider, error) {
	provider, err := models.ParseProvider(name)
	if err != nil {
		return "", err
	}
	if !provider.UsesOAuthPopup() {
		return "", fmt.Errorf("%s does not use browser authorization; use setup_calendly", provider)
	}
	return provider, nil
}

func statusToOutput(status *models.OAuthCallbackStatus) CheckAuthorizationOutput {
	if status == nil {
		return CheckAuthorizationOutput{}
	}
	return CheckAuthorizationOutput{
		Ready:         status.Ready(),
		IntegrationID: status.IntegrationID,
		Calendars:     status.Calendars,
		Message:       status.Message,
	}
}

func integrationToOutput(integration models.CalendarIntegration) IntegrationOutput {
	out := IntegrationOutput{
		ID:            integration.ID,
		Provider:      string(integration.Provider),
		IsPrimary:     integration.IsPrimary,
		SyncDirection: integration.SyncDirection,
	}
	if integration.LastSyncAt != nil {
		out.LastSyncAt = integration.LastSyncAt.Format(time.RFC3339)
	}
	if integration.LastSyncStatus != nil {
		out.LastSyncStatus = *integration.LastSyncStatus
	}
	return out
}
