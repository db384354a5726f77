package ledger

import (
	"context"

	"github.com/avolkhin/billing-ledger/internal/models"
)

// Store opens atomic units of work against the balance store and
// transaction log. Either every mutation made inside fn commits, or none do.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the handle for one unit of work. BalanceForUpdate acquires an
// exclusive lock on the balance row that is held until the unit of work
// commits or rolls back; concurrent operations on the same currency
// serialize on it. Callers locking more than one balance must acquire the
// locks in lexicographic code order.
type Tx interface {
	BalanceForUpdate(ctx context.Context, currency string) (*models.Balance, error)
	SaveBalance(ctx context.Context, balance *models.Balance) error
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
}
