// ABOUTME: Entry point for the TextBack calendar integrations CLI, TUI, and MCP server
// ABOUTME: Routes to subcommands based on arguments
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/harperreed/textback/cli"
	"github.com/harperreed/textback/config"
)

const version = "0.2.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Cache database path (default: ~/.local/share/textback/textback.db)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("textback version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	// Config commands work without a loaded config or database
	if command == "config" {
		if err := cli.ConfigCommand(os.Stdout, commandArgs); err != nil {
			log.Fatal("config command failed", "err", err)
		}
		return
	}

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	finalDBPath := *dbPath
	if finalDBPath == "" {
		finalDBPath = config.DatabasePath()
	}

	switch command {
	case "calendar", "tui", "mcp", "serve":
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	app, err := cli.NewApp(cfg, logger, finalDBPath)
	if err != nil {
		logger.Fatal("failed to start", "err", err)
	}
	logger.Debug("cache database", "path", finalDBPath)

	switch command {
	case "calendar":
		err = cli.CalendarCommand(app, commandArgs)
	case "tui":
		err = cli.TUICommand(app, commandArgs)
	case "mcp":
		err = cli.MCPCommand(app, version)
	case "serve":
		err = cli.ServeCommand(app, commandArgs)
	}
	_ = app.Close()

	if errors.Is(err, cli.ErrCancelled) {
		fmt.Fprintln(os.Stderr, "Cancelled")
		os.Exit(130)
	}
	if err != nil {
		logger.Fatal(command+" failed", "err", err)
	}
}

func printUsage() {
	fmt.Printf(`textback v%s - calendar integrations for the TextBack assistant

USAGE:
  textback [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Cache database path (default: ~/.local/share/textback/textback.db)

COMMANDS:
  calendar               Manage calendar integrations
  config                 Show or change settings
  tui                    Interactive integrations page
  mcp                    Start MCP server for Claude Desktop
  serve                  Start the read-only web dashboard

CALENDAR COMMANDS:
  textback calendar list         List connected calendars
    --offline                      Show the local cache only
    --json                         Print JSON

  textback calendar connect [flags] <google|outlook|calendly>
    --calendar <id>                Calendar id or event type URI to select without prompting
    --token <token>                Calendly personal access token
    --no-browser                   Print the authorization URL instead of opening it
    Note: flags must come before the provider

  textback calendar remove <id>  Disconnect a calendar
  textback calendar history      Recent connection attempts
    --limit <n>                    Max results (default: 20)

CONFIG COMMANDS:
  textback config show           Print settings with secrets masked
  textback config set [flags]    Update settings
    --api-url <url>                Backend API base URL
    --session <value>              Dashboard session cookie value
    --session-cookie <name>        Session cookie name (default: session)
    --api-key <key>                API key sent as a bearer token
    --business-id <id>             Business id for onboarding progress
    --poll-interval <duration>     Authorization poll interval (default: 2s)
    --poll-timeout <duration>      Stop waiting for authorization after this long (default: never)
    --log-level <level>            debug, info, warn, or error

TUI:
  textback tui [--no-browser]    Keys: g/o/c connect, d disconnect, r refresh, q quit

MCP SERVER:
  textback mcp                   Start MCP server (for Claude Desktop integration)

WEB DASHBOARD:
  textback serve [--port 8080]   Serve cached integrations and history

ENVIRONMENT:
  TEXTBACK_API_URL, TEXTBACK_SESSION, TEXTBACK_SESSION_COOKIE, TEXTBACK_API_KEY,
  TEXTBACK_BUSINESS_ID, TEXTBACK_POLL_INTERVAL, TEXTBACK_POLL_TIMEOUT, TEXTBACK_LOG_LEVEL
  Values may also come from a .env file in the working directory.
`, version)
}
