package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements ledger.Store on Postgres. Exclusive balance locks are
// row locks taken with SELECT ... FOR UPDATE and held until the enclosing
// database transaction commits or rolls back.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// RunInTx executes fn within a database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if err := fn(&ledgerTx{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) BalanceForUpdate(ctx context.Context, currency string) (*models.Balance, error) {
	b := &models.Balance{Currency: currency}
	query := `SELECT amount FROM balances WHERE currency_code = $1 FOR UPDATE`
	err := t.tx.QueryRow(ctx, query, currency).Scan(&b.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.BalanceNotFoundError{Currency: currency}
		}
		return nil, fmt.Errorf("lock balance %s: %w", currency, err)
	}
	return b, nil
}

func (t *ledgerTx) SaveBalance(ctx context.Context, balance *models.Balance) error {
	query := `UPDATE balances SET amount = $1 WHERE currency_code = $2`
	tag, err := t.tx.Exec(ctx, query, domain.RoundBalance(balance.Amount), balance.Currency)
	if err != nil {
		return fmt.Errorf("save balance %s: %w", balance.Currency, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("save balance %s affected %d rows", balance.Currency, tag.RowsAffected())
	}
	return nil
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, transaction_type, amount, currency_code, gross_currency_code, exchange_rate, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.Exec(ctx, query,
		txn.ID, txn.Type, txn.Amount, txn.Currency, txn.GrossCurrency, txn.ExchangeRate, txn.UserID, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
