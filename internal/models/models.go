package models

import (
	"time"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is an immutable identity entity; Code is the primary key.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Balance holds the current amount for one currency. Mutated only by the
// transaction processor under an exclusive row lock.
type Balance struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// CheckSufficient fails when the requested debit exceeds the available amount.
func (b *Balance) CheckSufficient(amount decimal.Decimal) error {
	if amount.GreaterThan(b.Amount) {
		return &domain.InsufficientFundsError{Available: b.Amount, Currency: b.Currency}
	}
	return nil
}

// Transaction is an immutable record of one completed operation. Amount is
// the principal in the settlement Currency; GrossCurrency and ExchangeRate
// are both set or both nil (present when the operation bridged currencies).
type Transaction struct {
	ID            uuid.UUID        `json:"id"`
	Type          string           `json:"transaction_type"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	GrossCurrency *string          `json:"gross_currency"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
