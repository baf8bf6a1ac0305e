// ABOUTME: sqlx-backed store for the local integration cache and attempt history
// ABOUTME: Mirrors the registry so the list can be shown offline
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harperreed/textback/models"
)

// DefaultAttemptLimit caps history queries when no limit is given.
const DefaultAttemptLimit = 20

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore wraps an opened database. The schema must already exist.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  sqlx.NewDb(db, DriverName),
		now: time.Now,
	}
}

type integrationRow struct {
	models.CalendarIntegration
	Position int       `db:"position"`
	CachedAt time.Time `db:"cached_at"`
}

// ReplaceIntegrations swaps the cached list for integrations in one transaction.
func (s *Store) ReplaceIntegrations(ctx context.Context, integrations []models.CalendarIntegration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_integrations`); err != nil {
		return fmt.Errorf("failed to clear integration cache: %w", err)
	}

	cachedAt := s.now().UTC()
	for i, integration := range integrations {
		row := integrationRow{CalendarIntegration: integration, Position: i, CachedAt: cachedAt}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO calendar_integrations
				(id, provider, is_primary, sync_direction, last_sync_at, last_sync_status, position, cached_at)
			VALUES
				(:id, :provider, :is_primary, :sync_direction, :last_sync_at, :last_sync_status, :position, :cached_at)
		`, row)
		if err != nil {
			return fmt.Errorf("failed to cache integration %s: %w", integration.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteIntegration(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_integrations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cached integration: %w", err)
	}
	return nil
}

// CachedIntegrations returns the last cached list in backend order and when it
// was cached. cachedAt is zero when the cache is empty.
func (s *Store) CachedIntegrations(ctx context.Context) ([]models.CalendarIntegration, time.Time, error) {
	var rows []integrationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, provider, is_primary, sync_direction, last_sync_at, last_sync_status, position, cached_at
		FROM calendar_integrations
		ORDER BY position, id
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load cached integrations: %w", err)
	}

	integrations := make([]models.CalendarIntegration, 0, len(rows))
	var cachedAt time.Time
	for _, row := range rows {
		integrations = append(integrations, row.CalendarIntegration)
		if row.CachedAt.After(cachedAt) {
			cachedAt = row.CachedAt
		}
	}
	return integrations, cachedAt, nil
}

// RecordAttempt inserts or updates a setup attempt by id.
func (s *Store) RecordAttempt(ctx context.Context, attempt models.SetupAttempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("attempt id is required")
	}
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = s.now()
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = attempt.StartedAt
	}
	// Stored as text, so keep one zone for ORDER BY.
	attempt.StartedAt = attempt.StartedAt.UTC()
	attempt.UpdatedAt = attempt.UpdatedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO setup_attempts
			(id, provider, step, integration_id, outcome, error, started_at, updated_at)
		VALUES
			(:id, :provider, :step, :integration_id, :outcome, :error, :started_at, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			step = excluded.step,
			integration_id = excluded.integration_id,
			outcome = excluded.outcome,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, attempt)
	if err != nil {
		return fmt.Errorf("failed to record setup attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recently updated attempts first.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]models.SetupAttempt, error) {
	if limit <= 0 {
		limit = DefaultAttemptLimit
	}

	attempts := []models.SetupAttempt{}
	err := s.db.SelectContext(ctx, &attempts, `
		SELECT id, provider, step, integration_id, outcome, error, started_at, updated_at
		FROM setup_attempts
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list setup attempts: %w", err)
	}
	return attempts, nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*models.SetupAttempt, error) {
	var attempt models.SetupAttempt
	err := s.db.GetContext(ctx, &attempt, `
		SELECT id, provider, step, integration_id, outcome, error, started_at, updated_at
		FROM setup_attempts
		WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setup attempt: %w", err)
	}
	return &attempt, nil
}
