// ABOUTME: REST client for the dashboard calendar endpoints of the backend API
// ABOUTME: Authenticates with the ambient session cookie or an API key bearer token
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/harperreed/textback/models"
)

const (
	// DefaultSessionCookie is the cookie name the dashboard session is stored under.
	DefaultSessionCookie = "session"

	defaultTimeout = 30 * time.Second
	userAgent      = "textback-cli"
)

// ErrNoBusiness is returned by business-scoped calls when no business id is configured.
var ErrNoBusiness = errors.New("no business id configured")

// Options configures a Client.
type Options struct {
	BaseURL           string
	SessionCookie     string
	SessionCookieName string
	APIKey            string
	BusinessID        string
	Timeout           time.Duration

	// HTTPClient overrides the transport (tests). Its Jar is replaced when a
	// session cookie is configured.
	HTTPClient *http.Client
}

// Client talks to the backend's /dashboard calendar endpoints.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	businessID string
}

// NewClient creates an API client from options.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL: unsupported scheme %q", base.Scheme)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	// API keys ride as bearer tokens; the oauth2 transport injects the header.
	if opts.APIKey != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, src)
		httpClient.Timeout = timeout
	}

	if opts.SessionCookie != "" {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		name := opts.SessionCookieName
		if name == "" {
			name = DefaultSessionCookie
		}
		jar.SetCookies(base, []*http.Cookie{{Name: name, Value: opts.SessionCookie, Path: "/"}})
		httpClient.Jar = jar
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		businessID: opts.BusinessID,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Authorize requests an OAuth authorization URL for google or outlook.
func (c *Client) Authorize(ctx context.Context, provider models.Provider) (string, error) {
	if !provider.UsesOAuthPopup() {
		return "", fmt.Errorf("provider %s does not use OAuth authorization", provider)
	}

	var resp models.AuthorizeResponse
	if err := c.do(ctx, http.MethodPost, calendarPath(string(provider), "authorize"), nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthorizationURL == "" {
		return "", fmt.Errorf("backend returned an empty authorization URL")
	}
	return resp.AuthorizationURL, nil
}

// CallbackStatus asks whether the OAuth code exchange for provider has completed.
func (c *Client) CallbackStatus(ctx context.Context, provider models.Provider) (*models.OAuthCallbackStatus, error) {
	var status models.OAuthCallbackStatus
	if err := c.do(ctx, http.MethodGet, calendarPath(string(provider), "callback-status"), nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SelectCalendar finalizes a google/outlook integration with the chosen calendar.
func (c *Client) SelectCalendar(ctx context.Context, provider models.Provider, integrationID, calendarID string) error {
	query := url.Values{"calendar_id": {calendarID}}
	return c.do(ctx, http.MethodPatch, calendarPath(string(provider), integrationID, "select-calendar"), query, nil, nil)
}

// SetupCalendly registers a Calendly personal access token and returns its event types.
func (c *Client) SetupCalendly(ctx context.Context, personalAccessToken string) (*models.CalendlySetupResponse, error) {
	query := url.Values{"personal_access_token": {personalAccessToken}}
	var resp models.CalendlySetupResponse
	if err := c.do(ctx, http.MethodPost, calendarPath(string(models.ProviderCalendly), "setup"), query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectEventType finalizes a Calendly integration with the chosen event type.
func (c *Client) SelectEventType(ctx context.Context, integrationID, eventTypeURI string) error {
	query := url.Values{"event_type_uri": {eventTypeURI}}
	return c.do(ctx, http.MethodPatch, calendarPath(string(models.ProviderCalendly), integrationID, "select-event-type"), query, nil, nil)
}

// ListIntegrations returns every calendar integration of the active tenant.
func (c *Client) ListIntegrations(ctx context.Context) ([]models.CalendarIntegration, error) {
	var list models.IntegrationList
	if err := c.do(ctx, http.MethodGet, calendarPath("integrations"), nil, nil, &list); err != nil {
		return nil, err
	}
	if list.Integrations == nil {
		list.Integrations = []models.CalendarIntegration{}
	}
	return list.Integrations, nil
}

// DeleteIntegration removes an integration server-side.
func (c *Client) DeleteIntegration(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, calendarPath("integrations", id), nil, nil, nil)
}

// CompleteOnboardingStep marks a business onboarding checklist item as done.
func (c *Client) CompleteOnboardingStep(ctx context.Context, stepID string) error {
	if c.businessID == "" {
		return ErrNoBusiness
	}
	body := map[string]string{"step_id": stepID}
	path := "/dashboard/businesses/" + url.PathEscape(c.businessID) + "/onboarding/complete"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func calendarPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/dashboard/calendar/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	// path arrives already escaped; keep RawPath so ids survive verbatim
	u := *c.baseURL
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
