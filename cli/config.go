// ABOUTME: Configuration CLI commands
// ABOUTME: Shows and updates the stored backend URL, credentials, and poll settings
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/harperreed/textback/config"
)

// ConfigCommand routes config subcommands.
func ConfigCommand(out io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config requires a subcommand (show, set)")
	}

	switch args[0] {
	case "show":
		return ConfigShowCommand(out, args[1:])
	case "set":
		return ConfigSetCommand(out, args[1:])
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

// ConfigShowCommand prints the effective configuration with secrets masked.
func ConfigShowCommand(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Config file: %s\n", config.Path())
	_, _ = fmt.Fprintf(out, "Database:    %s\n\n", config.DatabasePath())

	redacted := cfg.Redacted()
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(redacted)
}

// ConfigSetCommand updates stored settings. Only flags that are passed change.
func ConfigSetCommand(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	apiURL := fs.String("api-url", "", "Backend API base URL (e.g. https://api.example.com/api/v1)")
	session := fs.String("session", "", "Dashboard session cookie value")
	cookieName := fs.String("session-cookie", "", "Session cookie name")
	apiKey := fs.String("api-key", "", "API key sent as a bearer token")
	businessID := fs.String("business-id", "", "Business id for onboarding progress")
	pollInterval := fs.Duration("poll-interval", 0, "Authorization status poll interval (e.g. 2s)")
	pollTimeout := fs.Duration("poll-timeout", 0, "Give up waiting for authorization after this long (0 = never)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = fs.Parse(args)

	// File values only, so env overrides are never written back
	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}

	changed := 0
	fs.Visit(func(f *flag.Flag) {
		changed++
		switch f.Name {
		case "api-url":
			cfg.APIBaseURL = *apiURL
		case "session":
			cfg.SessionCookie = *session
		case "session-cookie":
			cfg.SessionCookieName = *cookieName
		case "api-key":
			cfg.APIKey = *apiKey
		case "business-id":
			cfg.BusinessID = *businessID
		case "poll-interval":
			cfg.PollInterval = config.Duration(*pollInterval)
		case "poll-timeout":
			cfg.PollTimeout = config.Duration(*pollTimeout)
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if changed == 0 {
		return fmt.Errorf("nothing to set; see 'textback config set -h'")
	}
	if time.Duration(cfg.PollInterval) <= 0 {
		return fmt.Errorf("--poll-interval must be positive")
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "✓ Saved %s\n", config.Path())
	return nil
}
