// ABOUTME: TUI subcommand
// ABOUTME: Runs the full-screen integrations page with logs redirected to a file
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/textback/config"
	"github.com/harperreed/textback/setup"
	"github.com/harperreed/textback/tui"
)

// TUICommand launches the interactive integrations page.
func TUICommand(app *App, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	noBrowser := fs.Bool("no-browser", false, "Show the authorization URL instead of opening a browser")
	_ = fs.Parse(args)

	if err := app.requireCredentials(); err != nil {
		return err
	}

	// The alt screen owns the terminal, so logs go to a file until exit.
	logFile, err := config.OpenLogFile()
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	app.Logger.SetOutput(logFile)
	defer app.Logger.SetOutput(os.Stderr)

	var opener setup.Opener = setup.BrowserOpener{}
	if *noBrowser {
		opener = setup.NoopOpener{}
	}

	if err := tui.Run(app.NewController(opener)); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
