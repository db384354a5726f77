package ledger

import (
	"context"
	"fmt"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Withdraw debits a locked balance and persists the new amount within the
// caller's unit of work. The caller is expected to have run CheckSufficient
// already; the check is repeated here so the amount >= 0 invariant holds
// even on a miscoded path.
func Withdraw(ctx context.Context, tx Tx, b *models.Balance, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("withdraw amount must be positive, got %s", amount)
	}
	if err := b.CheckSufficient(amount); err != nil {
		return err
	}
	b.Amount = domain.RoundBalance(b.Amount.Sub(amount))
	return tx.SaveBalance(ctx, b)
}

// Deposit credits a locked balance and persists the new amount within the
// caller's unit of work.
func Deposit(ctx context.Context, tx Tx, b *models.Balance, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive, got %s", amount)
	}
	b.Amount = domain.RoundBalance(b.Amount.Add(amount))
	return tx.SaveBalance(ctx, b)
}
