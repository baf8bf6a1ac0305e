// ABOUTME: MCP prompt handlers for calendar connection workflows
// ABOUTME: Walks an assistant through the tool calls that connect each provider
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/textback/models"
)

type PromptHandlers struct {
	integrations IntegrationLister
}

func NewPromptHandlers(integrations IntegrationLister) *PromptHandlers {
	return &PromptHandlers{integrations: integrations}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "connect-calendar":
		return h.getConnectCalendarPrompt(request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getConnectCalendarPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	provider, err := models.ParseProvider(args["provider"])
	if err != nil {
		return nil, err
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Help me connect %s to my TextBack assistant.\n\n", provider.DisplayName()))

	existing := 0
	for _, integration := range h.integrations.Integrations() {
		if integration.Provider == provider {
			existing++
		}
	}
	if existing > 0 {
		promptText.WriteString(fmt.Sprintf("Note: %d %s integration(s) are already connected.\n\n", existing, provider.DisplayName()))
	}

	promptText.WriteString("Steps:\n")
	if provider.UsesOAuthPopup() {
		promptText.WriteString(fmt.Sprintf("1. Call start_calendar_authorization with provider %q and show me the authorization URL.\n", provider))
		promptText.WriteString(fmt.Sprintf("2. Call check_calendar_authorization with provider %q and wait_seconds 60 until it reports ready.\n", provider))
		promptText.WriteString("3. Show me the calendars it returns and ask which one to sync.\n")
		promptText.WriteString("4. Call select_calendar with my choice.\n")
	} else {
		promptText.WriteString("1. Ask me for my Calendly personal access token.\n")
		promptText.WriteString("2. Call setup_calendly with the token.\n")
		promptText.WriteString("3. If event types come back, ask which one to use and call select_calendly_event_type.\n")
	}
	promptText.WriteString("\nFinish by calling list_calendar_integrations to confirm the new integration.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Connect %s", provider.DisplayName()),
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: promptText.String(),
				},
			},
		},
	}, nil
}
