package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository covers the read and seeding queries that run outside the
// processor's unit of work.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListCurrencies returns the full currency set, used to build the registry
// at startup.
func (r *Repository) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// UpsertCurrency creates a currency if absent; existing rows are never
// mutated (currency identity is immutable).
func (r *Repository) UpsertCurrency(ctx context.Context, c models.Currency) error {
	query := `INSERT INTO currencies (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, c.Code, c.Name); err != nil {
		return fmt.Errorf("upsert currency %s: %w", c.Code, err)
	}
	return nil
}

// SeedBalance creates a balance row for a currency if one does not exist yet.
func (r *Repository) SeedBalance(ctx context.Context, currency string, amount decimal.Decimal) error {
	query := `INSERT INTO balances (currency_code, amount) VALUES ($1, $2) ON CONFLICT (currency_code) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, currency, amount); err != nil {
		return fmt.Errorf("seed balance %s: %w", currency, err)
	}
	return nil
}

// GetBalance reads a committed balance without locking it.
func (r *Repository) GetBalance(ctx context.Context, currency string) (*models.Balance, error) {
	b := &models.Balance{Currency: currency}
	err := r.db.QueryRow(ctx, `SELECT amount FROM balances WHERE currency_code = $1`, currency).Scan(&b.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("balance %s not found", currency)
		}
		return nil, fmt.Errorf("get balance %s: %w", currency, err)
	}
	return b, nil
}

// ListBalances returns all committed balances.
func (r *Repository) ListBalances(ctx context.Context) ([]models.Balance, error) {
	rows, err := r.db.Query(ctx, `SELECT currency_code, amount FROM balances ORDER BY currency_code`)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.Currency, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// ListTransactions pages through the transaction log, newest first.
func (r *Repository) ListTransactions(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, transaction_type, amount, currency_code, gross_currency_code, exchange_rate, user_id, created_at
		FROM transactions
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Currency, &t.GrossCurrency, &t.ExchangeRate, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
