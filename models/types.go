// ABOUTME: Data models for calendar integrations and the connection flow
// ABOUTME: Defines providers, integrations, calendar options, callback status, and setup attempts
package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a calendar provider supported by the backend.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderOutlook  Provider = "outlook"
	ProviderCalendly Provider = "calendly"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderGoogle, ProviderOutlook, ProviderCalendly}

// ParseProvider validates a provider name (case-insensitive).
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGoogle, ProviderOutlook, ProviderCalendly:
		return p, nil
	}
	return "", fmt.Errorf("invalid provider: %q (valid: google, outlook, calendly)", s)
}

// UsesOAuthPopup reports whether connecting goes through a browser consent screen.
// Calendly is connected with a personal access token instead.
func (p Provider) UsesOAuthPopup() bool {
	return p == ProviderGoogle || p == ProviderOutlook
}

// DisplayName returns the human name for the provider.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google Calendar"
	case ProviderOutlook:
		return "Outlook"
	case ProviderCalendly:
		return "Calendly"
	}
	return string(p)
}

// Sync direction values reported by the backend.
const (
	SyncDirectionOneWay = "one_way"
	SyncDirectionTwoWay = "two_way"
)

type CalendarIntegration struct {
	ID             string     `json:"id" db:"id"`
	Provider       Provider   `json:"provider" db:"provider"`
	IsPrimary      bool       `json:"is_primary" db:"is_primary"`
	SyncDirection  string     `json:"sync_direction" db:"sync_direction"`
	LastSyncAt     *time.Time `json:"last_sync_at" db:"last_sync_at"`
	LastSyncStatus *string    `json:"last_sync_status" db:"last_sync_status"`
}

// SyncLabel renders the sync direction for display.
func (c CalendarIntegration) SyncLabel() string {
	switch c.SyncDirection {
	case SyncDirectionOneWay:
		return "one-way"
	case SyncDirectionTwoWay:
		return "two-way"
	case "":
		return "-"
	}
	return strings.ReplaceAll(c.SyncDirection, "_", "-")
}

// LastSyncLabel renders the last sync time in local time, or "never".
func (c CalendarIntegration) LastSyncLabel() string {
	if c.LastSyncAt == nil {
		return "never"
	}
	return c.LastSyncAt.Local().Format("2006-01-02 15:04")
}

// StatusLabel renders the last sync status, or "-" when unknown.
func (c CalendarIntegration) StatusLabel() string {
	if c.LastSyncStatus == nil || *c.LastSyncStatus == "" {
		return "-"
	}
	return *c.LastSyncStatus
}

// CalendarOption is one choice offered during calendar (or event type) selection.
type CalendarOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// OAuthCallbackStatus is the body of the callback-status endpoint.
type OAuthCallbackStatus struct {
	Success       bool             `json:"success"`
	IntegrationID string           `json:"integration_id,omitempty"`
	Calendars     []CalendarOption `json:"calendars,omitempty"`
	Provider      Provider         `json:"provider,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// Ready reports whether the OAuth exchange finished and calendars can be offered.
func (s OAuthCallbackStatus) Ready() bool {
	return s.Success && len(s.Calendars) > 0
}

// EventType is a bookable Calendly meeting template.
type EventType struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	Duration int    `json:"duration,omitempty"` // minutes
	Active   bool   `json:"active,omitempty"`
}

// Option maps an event type onto the generic selector option.
func (e EventType) Option() CalendarOption {
	opt := CalendarOption{ID: e.URI, Name: e.Name}
	if e.Duration > 0 {
		opt.Description = fmt.Sprintf("%d min", e.Duration)
	}
	return opt
}

// EventTypeOptions converts Calendly event types into selector options.
func EventTypeOptions(types []EventType) []CalendarOption {
	options := make([]CalendarOption, 0, len(types))
	for _, et := range types {
		options = append(options, et.Option())
	}
	return options
}

type AuthorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

type CalendlySetupResponse struct {
	IntegrationID string      `json:"integration_id"`
	EventTypes    []EventType `json:"event_types"`
}

type IntegrationList struct {
	Integrations []CalendarIntegration `json:"integrations"`
}

// Onboarding step ids tracked by the backend.
const (
	OnboardingStepCalendarConnection = "calendar_connection"
)

// Setup attempt outcomes.
const (
	OutcomePending   = "pending"
	OutcomeConnected = "connected"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeExpired   = "expired"
)

// SetupAttempt records one lifetime of the connection dialog.
type SetupAttempt struct {
	ID            string    `json:"id" db:"id"`
	Provider      Provider  `json:"provider" db:"provider"`
	Step          string    `json:"step" db:"step"`
	IntegrationID string    `json:"integration_id,omitempty" db:"integration_id"`
	Outcome       string    `json:"outcome" db:"outcome"`
	Error         string    `json:"error,omitempty" db:"error"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
