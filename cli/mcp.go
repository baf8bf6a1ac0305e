// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server exposing calendar integration tools on stdio
package cli

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/textback/handlers"
)

// NewMCPServer registers every calendar tool, resource, and prompt.
func NewMCPServer(app *App, version string) *mcp.Server {
	calendarHandlers := handlers.NewCalendarHandlers(app.Client, app.Registry, time.Duration(app.Config.PollInterval), app.Logger)
	resourceHandlers := handlers.NewResourceHandlers(app.Registry, app.Store)
	promptHandlers := handlers.NewPromptHandlers(app.Registry)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "textback",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_calendar_integrations",
		Description: "List the calendars connected to the TextBack assistant",
	}, calendarHandlers.ListIntegrations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_calendar_integration",
		Description: "Disconnect a calendar integration by id",
	}, calendarHandlers.RemoveIntegration)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_calendar_authorization",
		Description: "Start connecting Google or Outlook; returns the URL the user must open to grant access",
	}, calendarHandlers.StartAuthorization)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_calendar_authorization",
		Description: "Check whether the user finished the Google or Outlook consent screen, optionally waiting for it",
	}, calendarHandlers.CheckAuthorization)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_calendar",
		Description: "Choose which Google or Outlook calendar to sync and finish the connection",
	}, calendarHandlers.SelectCalendar)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "setup_calendly",
		Description: "Connect Calendly with a personal access token; returns event types to choose from",
	}, calendarHandlers.SetupCalendly)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_calendly_event_type",
		Description: "Choose the Calendly event type used for bookings and finish the connection",
	}, calendarHandlers.SelectEventType)

	server.AddResource(&mcp.Resource{
		URI:         handlers.IntegrationsURI,
		Name:        "integrations",
		Description: "Last fetched list of calendar integrations",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         handlers.AttemptsURI,
		Name:        "attempts",
		Description: "Recent calendar connection attempts from this machine",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "connect-calendar",
		Description: "Step-by-step guide for connecting a calendar provider",
		Arguments: []*mcp.PromptArgument{
			{Name: "provider", Description: "google, outlook, or calendly", Required: true},
		},
	}, promptHandlers.GetPrompt)

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(app *App, version string) error {
	app.Logger.Info("starting MCP server")

	if err := app.Registry.Refresh(context.Background()); err != nil {
		app.Logger.Warn("could not load integrations, serving cached list", "err", err)
	}

	server := NewMCPServer(app, version)
	return server.Run(context.Background(), &mcp.StdioTransport{})
}
