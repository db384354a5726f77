package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied by the seeding command; the service itself assumes the
// tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS currencies (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS balances (
	currency_code TEXT PRIMARY KEY REFERENCES currencies(code),
	amount NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (amount >= 0)
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	transaction_type TEXT NOT NULL,
	amount NUMERIC(20,5) NOT NULL,
	currency_code TEXT NOT NULL REFERENCES currencies(code),
	gross_currency_code TEXT REFERENCES currencies(code),
	exchange_rate NUMERIC(35,16),
	user_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((gross_currency_code IS NULL) = (exchange_rate IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at DESC);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	idempotency_key TEXT PRIMARY KEY,
	request_hash TEXT NOT NULL,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	response_status INTEGER NOT NULL DEFAULT 0,
	response_body BYTEA NOT NULL DEFAULT ''::bytea,
	content_type TEXT NOT NULL DEFAULT 'application/json',
	in_progress BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the ledger tables if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
