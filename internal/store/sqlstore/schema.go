package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// schema is written for both dialects; {{ts}} expands to the timestamp type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id   TEXT PRIMARY KEY,
		username     TEXT NOT NULL UNIQUE,
		email        TEXT NOT NULL,
		full_name    TEXT NOT NULL,
		cash_balance BIGINT NOT NULL CHECK (cash_balance >= 0),
		created_at   {{ts}} NOT NULL,
		updated_at   {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		symbol         TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		sector         TEXT NOT NULL,
		market_cap     BIGINT NOT NULL,
		current_price  BIGINT NOT NULL,
		previous_close BIGINT NOT NULL,
		day_high       BIGINT NOT NULL,
		day_low        BIGINT NOT NULL,
		volume         BIGINT NOT NULL,
		updated_at     {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		account_id   TEXT NOT NULL REFERENCES accounts (account_id),
		symbol       TEXT NOT NULL,
		quantity     BIGINT NOT NULL CHECK (quantity > 0),
		average_cost TEXT NOT NULL,
		created_at   {{ts}} NOT NULL,
		updated_at   {{ts}} NOT NULL,
		PRIMARY KEY (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id        TEXT PRIMARY KEY,
		account_id      TEXT NOT NULL REFERENCES accounts (account_id),
		symbol          TEXT NOT NULL,
		order_type      TEXT NOT NULL,
		side            TEXT NOT NULL,
		quantity        BIGINT NOT NULL,
		limit_price     BIGINT NOT NULL,
		status          TEXT NOT NULL,
		filled_quantity BIGINT NOT NULL,
		filled_price    BIGINT NOT NULL,
		reject_reason   TEXT NOT NULL,
		created_at      {{ts}} NOT NULL,
		updated_at      {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_account_idx ON orders (account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		alert_id     TEXT PRIMARY KEY,
		account_id   TEXT NOT NULL REFERENCES accounts (account_id),
		symbol       TEXT NOT NULL,
		target_price BIGINT NOT NULL,
		alert_condition TEXT NOT NULL,
		active       BOOLEAN NOT NULL,
		triggered    BOOLEAN NOT NULL,
		created_at   {{ts}} NOT NULL,
		triggered_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_account_idx ON alerts (account_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS watchlist_items (
		account_id TEXT NOT NULL REFERENCES accounts (account_id),
		symbol     TEXT NOT NULL,
		added_at   {{ts}} NOT NULL,
		PRIMARY KEY (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		webhook_id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		event      TEXT NOT NULL,
		url        TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		UNIQUE (account_id, event)
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ts := "TIMESTAMP"
	if s.dialect == Postgres {
		ts = "TIMESTAMPTZ"
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ts}}", ts)); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	s.logger.Info("schema ready")
	return nil
}
