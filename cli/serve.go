// ABOUTME: Web dashboard subcommand
// ABOUTME: Serves cached integrations and connection history over HTTP until interrupted
package cli

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/harperreed/textback/web"
)

// ServeCommand starts the web dashboard.
func ServeCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	_ = fs.Parse(args)

	if *port < 1 || *port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	server, err := web.NewServer(app.Registry, app.Store, app.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(*port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
