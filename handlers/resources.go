// ABOUTME: MCP resource handlers exposing cached integration data
// ABOUTME: Read-only textback:// URIs for the integration list and setup attempt history
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/textback/models"
)

const (
	IntegrationsURI = "textback://integrations"
	AttemptsURI     = "textback://attempts"
)

// AttemptLister reads recorded connection attempts.
type AttemptLister interface {
	ListAttempts(ctx context.Context, limit int) ([]models.SetupAttempt, error)
}

// IntegrationLister reads the cached integration list.
type IntegrationLister interface {
	Integrations() []models.CalendarIntegration
}

type ResourceHandlers struct {
	integrations IntegrationLister
	attempts     AttemptLister
}

func NewResourceHandlers(integrations IntegrationLister, attempts AttemptLister) *ResourceHandlers {
	return &ResourceHandlers{integrations: integrations, attempts: attempts}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "textback://") {
		return nil, fmt.Errorf("invalid URI scheme: expected textback://")
	}

	switch uri {
	case IntegrationsURI:
		list := h.integrations.Integrations()
		out := make([]IntegrationOutput, len(list))
		for i, integration := range list {
			out[i] = integrationToOutput(integration)
		}
		return jsonResource(uri, out)

	case AttemptsURI:
		if h.attempts == nil {
			return jsonResource(uri, []models.SetupAttempt{})
		}
		attempts, err := h.attempts.ListAttempts(ctx, 50)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch setup attempts: %w", err)
		}
		return jsonResource(uri, attempts)

	default:
		return nil, fmt.Errorf("unknown resource: %s", strings.TrimPrefix(uri, "textback://"))
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
