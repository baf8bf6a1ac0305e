// ABOUTME: Database schema definitions
// ABOUTME: Creates the integration cache and setup attempt history tables
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_integrations (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL CHECK(provider IN ('google', 'outlook', 'calendly')),
	is_primary BOOLEAN NOT NULL DEFAULT 0,
	sync_direction TEXT NOT NULL DEFAULT '',
	last_sync_at DATETIME,
	last_sync_status TEXT,
	position INTEGER NOT NULL DEFAULT 0,
	cached_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calendar_integrations_provider ON calendar_integrations(provider);

CREATE TABLE IF NOT EXISTS setup_attempts (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	step TEXT NOT NULL,
	integration_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL CHECK(outcome IN ('pending', 'connected', 'cancelled', 'failed', 'expired')),
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_setup_attempts_updated_at ON setup_attempts(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_setup_attempts_provider ON setup_attempts(provider);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
