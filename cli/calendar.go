// ABOUTME: Calendar integration CLI commands
// ABOUTME: List, connect, remove, and attempt history for Google, Outlook, and Calendly
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/harperreed/textback/api"
	"github.com/harperreed/textback/models"
	"github.com/harperreed/textback/setup"
)

// ErrCancelled is returned when the user interrupts a connection.
var ErrCancelled = errors.New("connection cancelled")

// CalendarCommand routes calendar subcommands.
func CalendarCommand(app *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("calendar requires a subcommand (list, connect, remove, history)")
	}

	switch args[0] {
	case "list":
		return CalendarListCommand(app, args[1:])
	case "connect":
		return CalendarConnectCommand(app, args[1:])
	case "remove":
		return CalendarRemoveCommand(app, args[1:])
	case "history":
		return CalendarHistoryCommand(app, args[1:])
	default:
		return fmt.Errorf("unknown calendar command: %s", args[0])
	}
}

// CalendarListCommand lists connected calendar integrations.
func CalendarListCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	offline := fs.Bool("offline", false, "Show the local cache without contacting the server")
	asJSON := fs.Bool("json", false, "Print JSON")
	_ = fs.Parse(args)

	ctx := context.Background()
	integrations, cachedAt, err := app.Store.CachedIntegrations(ctx)
	if err != nil {
		return err
	}
	stale := true

	if !*offline {
		if err := app.requireCredentials(); err != nil {
			return err
		}
		if err := app.Registry.Refresh(ctx); err != nil {
			if len(integrations) == 0 {
				return fmt.Errorf("failed to load integrations: %s", api.Message(err))
			}
			app.Logger.Warn("showing cached integrations", "err", api.Message(err))
		} else {
			integrations = app.Registry.Integrations()
			stale = false
		}
	}

	if *asJSON {
		encoder := json.NewEncoder(app.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(models.IntegrationList{Integrations: integrations})
	}

	if len(integrations) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No calendars connected")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROVIDER\tPRIMARY\tSYNC\tLAST SYNC\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "--------\t-------\t----\t---------\t------\t--")
	for _, integration := range integrations {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			integration.Provider.DisplayName(),
			yesNo(integration.IsPrimary),
			integration.SyncLabel(),
			integration.LastSyncLabel(),
			integration.StatusLabel(),
			integration.ID)
	}
	_ = w.Flush()

	if stale && !cachedAt.IsZero() {
		_, _ = fmt.Fprintf(app.Out, "\n(cached %s)\n", cachedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// CalendarConnectCommand connects a provider through the setup controller.
func CalendarConnectCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	calendarID := fs.String("calendar", "", "Calendar id (or Calendly event type URI) to select without prompting")
	token := fs.String("token", "", "Calendly personal access token")
	noBrowser := fs.Bool("no-browser", false, "Print the authorization URL instead of opening a browser")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: textback calendar connect [flags] <google|outlook|calendly>")
	}
	provider, err := models.ParseProvider(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := app.requireCredentials(); err != nil {
		return err
	}

	var opener setup.Opener = setup.BrowserOpener{}
	if *noBrowser {
		opener = setup.NoopOpener{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl := app.NewController(opener)
	defer ctrl.Shutdown()

	return connect(ctx, app, ctrl, provider, *calendarID, *token)
}

func connect(ctx context.Context, app *App, ctrl *setup.Controller, provider models.Provider, calendarID, token string) error {
	if err := ctrl.ConnectProvider(ctx, provider); err != nil {
		return controllerError(ctrl, err)
	}

	if provider.UsesOAuthPopup() {
		authURL := ctrl.Snapshot().AuthorizationURL
		_, _ = fmt.Fprintf(app.Out, "Authorize %s in your browser.\n", provider.DisplayName())
		_, _ = fmt.Fprintf(app.Out, "\nIf the browser doesn't open, visit this URL:\n%s\n\n", authURL)
		_, _ = fmt.Fprintln(app.Out, "Waiting for authorization... (Ctrl-C to cancel)")

		if err := waitForSelection(ctx, ctrl); err != nil {
			return err
		}
	} else {
		if token == "" {
			restore := saveTerminal()
			var err error
			token, err = awaitInput(ctx, func() (string, error) {
				return readSecret(app.In, app.Out, "Calendly personal access token: ")
			})
			if err != nil {
				restore()
				ctrl.CloseDialog()
				return err
			}
		}
		if err := ctrl.SetupCalendly(ctx, token); err != nil {
			if ctrl.Dialog().Open() {
				err = controllerError(ctrl, err)
				ctrl.CloseDialog()
				return err
			}
			// Connected; only the follow-up list refresh failed.
			app.Logger.Warn("could not refresh integrations", "err", err)
		}
		if !ctrl.Dialog().Open() {
			_, _ = fmt.Fprintln(app.Out, "✓ Calendly connected (no event types to choose from)")
			return nil
		}
	}

	d := ctrl.Dialog()
	choice := calendarID
	if choice == "" {
		label := "Select a calendar"
		if provider == models.ProviderCalendly {
			label = "Select an event type"
		}
		var err error
		choice, err = awaitInput(ctx, func() (string, error) {
			return promptChoice(app.In, app.Out, label, d.Calendars)
		})
		if err != nil {
			ctrl.CloseDialog()
			return err
		}
	}
	if !ctrl.CanConfirm(choice) {
		ctrl.CloseDialog()
		return fmt.Errorf("%q is not one of the offered options", choice)
	}

	if err := ctrl.Confirm(ctx, choice); err != nil {
		if ctrl.Dialog().Open() {
			err = controllerError(ctrl, err)
			ctrl.CloseDialog()
			return err
		}
		app.Logger.Warn("could not refresh integrations", "err", err)
	}

	opt, _ := d.Option(choice)
	_, _ = fmt.Fprintf(app.Out, "\n✓ Connected %s (%s)\n", provider.DisplayName(), opt.Name)
	return nil
}

// controllerError prefers the message the controller put in its error slot.
func controllerError(ctrl *setup.Controller, err error) error {
	if msg := ctrl.Err(); msg != "" {
		return errors.New(msg)
	}
	return err
}

// waitForSelection blocks until the poller delivers calendars, the dialog
// closes on its own, or ctx is cancelled.
func waitForSelection(ctx context.Context, ctrl *setup.Controller) error {
	for {
		snap := ctrl.Snapshot()
		switch {
		case snap.Dialog.Step == setup.StepSelectingCalendar:
			return nil
		case !snap.Dialog.Open():
			if snap.Err != "" {
				return errors.New(snap.Err)
			}
			return ErrCancelled
		}

		select {
		case <-ctx.Done():
			ctrl.CloseDialog()
			return ErrCancelled
		case _, ok := <-ctrl.Updates():
			if !ok {
				return ErrCancelled
			}
		}
	}
}

// CalendarRemoveCommand deletes an integration.
func CalendarRemoveCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: textback calendar remove <id>")
	}
	if err := app.requireCredentials(); err != nil {
		return err
	}

	id := fs.Arg(0)
	if err := app.Registry.Remove(context.Background(), id); err != nil {
		return fmt.Errorf("failed to remove integration: %s", api.Message(err))
	}

	_, _ = fmt.Fprintf(app.Out, "✓ Removed integration %s\n", id)
	return nil
}

// CalendarHistoryCommand prints recent connection attempts.
func CalendarHistoryCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Max results")
	_ = fs.Parse(args)

	attempts, err := app.Store.ListAttempts(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		_, _ = fmt.Fprintln(app.Out, "No connection attempts recorded")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tPROVIDER\tOUTCOME\tSTEP\tINTEGRATION\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t--------\t-------\t----\t-----------\t-----")
	for _, a := range attempts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.StartedAt.Local().Format("2006-01-02 15:04"),
			a.Provider,
			a.Outcome,
			a.Step,
			orDash(a.IntegrationID),
			orDash(a.Error))
	}
	_ = w.Flush()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
