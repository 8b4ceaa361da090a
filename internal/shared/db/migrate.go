package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Esquema das três stores do trade engine.
// Valores monetários: NUMERIC no Postgres, TEXT no SQLite (decimal exato, sem REAL).
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		user_id    TEXT PRIMARY KEY,
		balance    NUMERIC(20,4) NOT NULL CHECK (balance >= 0),
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_id     TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		scores       JSONB NOT NULL DEFAULT '{}',
		odds         JSONB NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming','ongoing','completed')),
		winner       TEXT NULL,
		version      BIGINT NOT NULL DEFAULT 1,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS events_name_idx ON events (name)`,
	`CREATE TABLE IF NOT EXISTS stakes (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES accounts(user_id),
		event_id      TEXT NOT NULL REFERENCES events(event_id),
		selected_team TEXT NOT NULL,
		bet_amount    NUMERIC(20,4) NOT NULL CHECK (bet_amount > 0),
		odds          NUMERIC(10,4) NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','won','lost','refunded')),
		payout        NUMERIC(20,4) NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		settled_at    TIMESTAMPTZ NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS stakes_pending_triple_uq
		ON stakes (user_id, event_id, selected_team) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS stakes_event_status_idx ON stakes (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS stakes_user_idx ON stakes (user_id, created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		user_id    TEXT PRIMARY KEY,
		balance    TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_id     TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		scheduled_at TIMESTAMP NOT NULL,
		scores       TEXT NOT NULL DEFAULT '{}',
		odds         TEXT NOT NULL DEFAULT '{}',
		status       TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming','ongoing','completed')),
		winner       TEXT NULL,
		version      INTEGER NOT NULL DEFAULT 1,
		updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS events_name_idx ON events (name)`,
	`CREATE TABLE IF NOT EXISTS stakes (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL REFERENCES accounts(user_id),
		event_id      TEXT NOT NULL REFERENCES events(event_id),
		selected_team TEXT NOT NULL,
		bet_amount    TEXT NOT NULL,
		odds          TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','won','lost','refunded')),
		payout        TEXT NOT NULL DEFAULT '0',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		settled_at    TIMESTAMP NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS stakes_pending_triple_uq
		ON stakes (user_id, event_id, selected_team) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS stakes_event_status_idx ON stakes (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS stakes_user_idx ON stakes (user_id, created_at)`,
}

// Migrate cria as tabelas e índices do dialeto informado (idempotente)
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	schema := postgresSchema
	if driver == DriverSQLite {
		schema = sqliteSchema
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
