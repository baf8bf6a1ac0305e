// ABOUTME: Integration registry caching the tenant's calendar integrations
// ABOUTME: Full-replace refresh from the backend with write-through to a local store
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/textback/models"
)

// Source is the backend side of the registry.
type Source interface {
	ListIntegrations(ctx context.Context) ([]models.CalendarIntegration, error)
	DeleteIntegration(ctx context.Context, id string) error
}

// Store mirrors the cache locally so it can be shown offline.
type Store interface {
	ReplaceIntegrations(ctx context.Context, integrations []models.CalendarIntegration) error
	DeleteIntegration(ctx context.Context, id string) error
}

// Registry holds the integration list for the active tenant.
type Registry struct {
	source Source
	store  Store
	logger *log.Logger

	mu           sync.RWMutex
	integrations []models.CalendarIntegration
	refreshedAt  time.Time
}

// New creates a registry. store and logger may be nil.
func New(source Source, store Store, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		source:       source,
		store:        store,
		logger:       logger,
		integrations: []models.CalendarIntegration{},
	}
}

// Seed fills the cache without contacting the backend, e.g. from the local store.
func (r *Registry) Seed(integrations []models.CalendarIntegration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrations = clone(integrations)
}

// Refresh fetches the list and replaces the cache wholesale.
func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.source.ListIntegrations(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.integrations = clone(list)
	r.refreshedAt = time.Now()
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.ReplaceIntegrations(ctx, list); err != nil {
			r.logger.Warn("failed to cache integrations", "err", err)
		}
	}
	return nil
}

// Remove deletes the integration server-side, then drops it from the cache.
// The cache is untouched when the delete fails.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("integration id is required")
	}
	if err := r.source.DeleteIntegration(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	kept := r.integrations[:0:0]
	for _, integration := range r.integrations {
		if integration.ID != id {
			kept = append(kept, integration)
		}
	}
	r.integrations = kept
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.DeleteIntegration(ctx, id); err != nil {
			r.logger.Warn("failed to update integration cache", "id", id, "err", err)
		}
	}
	return nil
}

// Integrations returns a copy of the cached list.
func (r *Registry) Integrations() []models.CalendarIntegration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.integrations)
}

// Find returns the cached integration with id.
func (r *Registry) Find(id string) (models.CalendarIntegration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, integration := range r.integrations {
		if integration.ID == id {
			return integration, true
		}
	}
	return models.CalendarIntegration{}, false
}

// RefreshedAt is when the list was last fetched; zero if never.
func (r *Registry) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}

func clone(list []models.CalendarIntegration) []models.CalendarIntegration {
	out := make([]models.CalendarIntegration, len(list))
	copy(out, list)
	return out
}
