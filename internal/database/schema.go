package database

import (
	"context"
	"fmt"
)

// schema holds the idempotent table definitions for the bot's local store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		exchange_id SMALLINT NOT NULL,
		market_id BIGINT NOT NULL,
		selection_id BIGINT NOT NULL,
		side SMALLINT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		stake DOUBLE PRECISION NOT NULL,
		status SMALLINT NOT NULL,
		ref TEXT,
		matched_stake DOUBLE PRECISION NOT NULL DEFAULT 0,
		unmatched_stake DOUBLE PRECISION NOT NULL DEFAULT 0,
		placed_at TIMESTAMPTZ,
		reset_count INT NOT NULL DEFAULT 0,
		withdrawal_seq INT NOT NULL DEFAULT 0,
		persistence BOOLEAN NOT NULL DEFAULT FALSE,
		cancel_running BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_exchange_ref
		ON orders (exchange_id, ref) WHERE ref IS NOT NULL AND ref <> ''`,
	`CREATE INDEX IF NOT EXISTS orders_status ON orders (status)`,

	`CREATE TABLE IF NOT EXISTS selections (
		exchange_id SMALLINT NOT NULL,
		market_id BIGINT NOT NULL,
		selection_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		back JSONB NOT NULL,
		lay JSONB NOT NULL,
		last_matched_price DOUBLE PRECISION,
		last_matched_amount DOUBLE PRECISION,
		reset_count INT NOT NULL DEFAULT 0,
		withdrawal_seq INT NOT NULL DEFAULT 0,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (exchange_id, market_id, selection_id)
	)`,

	`CREATE TABLE IF NOT EXISTS matched_markets (
		bdaq_market_id BIGINT NOT NULL,
		bf_market_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (bdaq_market_id, bf_market_id)
	)`,
	`CREATE TABLE IF NOT EXISTS matched_selections (
		bdaq_market_id BIGINT NOT NULL,
		bf_market_id BIGINT NOT NULL,
		bdaq_selection_id BIGINT NOT NULL,
		bf_selection_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (bdaq_market_id, bf_market_id, bdaq_selection_id)
	)`,

	`CREATE TABLE IF NOT EXISTS account_balances (
		exchange_id SMALLINT NOT NULL,
		available DOUBLE PRECISION NOT NULL,
		exposure DOUBLE PRECISION NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (exchange_id, fetched_at)
	)`,
}

// EnsureSchema creates the bot's tables when missing. Safe to run on every
// startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
