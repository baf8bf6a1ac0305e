// ABOUTME: Shared wiring for commands that talk to the backend
// ABOUTME: Builds the API client, local cache store, registry, and setup controller from config
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/textback/api"
	"github.com/harperreed/textback/config"
	"github.com/harperreed/textback/db"
	"github.com/harperreed/textback/registry"
	"github.com/harperreed/textback/setup"
)

// App bundles the collaborators every backend command needs.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	DB       *sql.DB
	Store    *db.Store
	Client   *api.Client
	Registry *registry.Registry

	In  *bufio.Reader
	Out io.Writer
}

// NewApp opens the cache database at dbPath and connects the registry to it.
// The registry starts seeded from the cache so offline views have data.
func NewApp(cfg *config.Config, logger *log.Logger, dbPath string) (*App, error) {
	client, err := api.NewClient(api.Options{
		BaseURL:           cfg.APIBaseURL,
		SessionCookie:     cfg.SessionCookie,
		SessionCookieName: cfg.SessionCookieName,
		APIKey:            cfg.APIKey,
		BusinessID:        cfg.BusinessID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	database, err := db.OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(database)

	reg := registry.New(client, store, logger)
	if cached, _, err := store.CachedIntegrations(context.Background()); err != nil {
		logger.Warn("could not load integration cache", "err", err)
	} else {
		reg.Seed(cached)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       database,
		Store:    store,
		Client:   client,
		Registry: reg,
		In:       bufio.NewReader(os.Stdin),
		Out:      os.Stdout,
	}, nil
}

// NewController builds a setup controller bound to this app's backend.
func (a *App) NewController(opener setup.Opener) *setup.Controller {
	return setup.NewController(a.Client, a.Registry, setup.Options{
		PollInterval: time.Duration(a.Config.PollInterval),
		PollTimeout:  time.Duration(a.Config.PollTimeout),
		Opener:       opener,
		Recorder:     a.Store,
		Logger:       a.Logger,
	})
}

// Close releases the database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func (a *App) requireCredentials() error {
	if !a.Config.HasCredentials() {
		return fmt.Errorf("not signed in: set a session with 'textback config set --session <cookie>' or TEXTBACK_SESSION")
	}
	return nil
}
