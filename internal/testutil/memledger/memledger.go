// Package memledger provides an in-memory ledger store with the same
// exclusive-lock semantics as the Postgres-backed store: BalanceForUpdate
// blocks while another unit of work holds the row, and mutations only
// become visible to other readers at commit.
package memledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type balanceRow struct {
	mu     sync.Mutex
	amount decimal.Decimal
}

// Store implements ledger.Store in memory.
type Store struct {
	mu           sync.Mutex
	balances     map[string]*balanceRow
	transactions []models.Transaction
}

func New() *Store {
	return &Store{balances: make(map[string]*balanceRow)}
}

// SeedBalance creates or resets a balance row outside any unit of work.
func (s *Store) SeedBalance(currency string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[currency] = &balanceRow{amount: amount}
}

// BalanceAmount reads the committed amount for a currency.
func (s *Store) BalanceAmount(currency string) (decimal.Decimal, bool) {
	s.mu.Lock()
	row, ok := s.balances[currency]
	s.mu.Unlock()
	if !ok {
		return decimal.Zero, false
	}
	row.mu.Lock()
	defer row.mu.Unlock()
	return row.amount, true
}

// Transactions returns a copy of the committed transaction log.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// ListTransactions pages through the committed log, newest first.
func (s *Store) ListTransactions(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for i := len(s.transactions) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.transactions[i])
	}
	return out, nil
}

// RunInTx executes fn as one unit of work. Locks acquired via
// BalanceForUpdate are held until the unit commits or rolls back; dirty
// balance amounts are discarded on error.
func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx := &memTx{
		store:  s,
		locked: make(map[string]*balanceRow),
		dirty:  make(map[string]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	store     *Store
	lockOrder []string
	locked    map[string]*balanceRow
	dirty     map[string]decimal.Decimal
	appended  []models.Transaction
}

func (tx *memTx) BalanceForUpdate(ctx context.Context, currency string) (*models.Balance, error) {
	tx.store.mu.Lock()
	row, ok := tx.store.balances[currency]
	tx.store.mu.Unlock()
	if !ok {
		return nil, &domain.BalanceNotFoundError{Currency: currency}
	}

	if _, held := tx.locked[currency]; !held {
		row.mu.Lock()
		tx.locked[currency] = row
		tx.lockOrder = append(tx.lockOrder, currency)
	}

	amount := row.amount
	if dirty, ok := tx.dirty[currency]; ok {
		amount = dirty
	}
	return &models.Balance{Currency: currency, Amount: amount}, nil
}

func (tx *memTx) SaveBalance(ctx context.Context, balance *models.Balance) error {
	if _, held := tx.locked[balance.Currency]; !held {
		return fmt.Errorf("balance %s saved without lock", balance.Currency)
	}
	tx.dirty[balance.Currency] = domain.RoundBalance(balance.Amount)
	return nil
}

func (tx *memTx) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	tx.appended = append(tx.appended, *txn)
	return nil
}

func (tx *memTx) commit() {
	for currency, amount := range tx.dirty {
		tx.locked[currency].amount = amount
	}
	if len(tx.appended) > 0 {
		tx.store.mu.Lock()
		tx.store.transactions = append(tx.store.transactions, tx.appended...)
		tx.store.mu.Unlock()
	}
}

func (tx *memTx) release() {
	for i := len(tx.lockOrder) - 1; i >= 0; i-- {
		tx.locked[tx.lockOrder[i]].mu.Unlock()
	}
	tx.lockOrder = nil
}
