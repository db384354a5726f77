package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/avolkhin/billing-ledger/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Result is the post-commit snapshot returned to the caller: the recorded
// transaction's fields plus the new amount of every balance the operation
// touched.
type Result struct {
	ID              uuid.UUID         `json:"id"`
	TransactionType string            `json:"transaction_type"`
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	GrossCurrency   *string           `json:"gross_currency"`
	ExchangeRate    *string           `json:"exchange_rate"`
	CreatedAt       time.Time         `json:"created_at"`
	Balances        map[string]string `json:"balances"`
}

// Processor executes validated operations against the balance store. Each
// run is one atomic unit of work: lock balances, mutate, append exactly one
// transaction record, commit. Any failure rolls the whole unit back.
type Processor struct {
	store    Store
	registry *Registry
	logger   *zap.Logger
}

func NewProcessor(store Store, registry *Registry, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, registry: registry, logger: logger}
}

// Process runs one operation to completion.
func (p *Processor) Process(ctx context.Context, op Operation) (*Result, error) {
	var res *Result
	err := p.store.RunInTx(ctx, func(tx Tx) error {
		var err error
		switch op.Type {
		case domain.TxTypeConversion:
			res, err = p.convert(ctx, tx, op)
		case domain.TxTypeServiceSpend:
			res, err = p.spendService(ctx, tx, op)
		case domain.TxTypeAccountTopUp:
			res, err = p.topUpAccount(ctx, tx, op)
		default:
			err = fmt.Errorf("unknown operation type %q", op.Type)
		}
		return err
	})
	if err != nil {
		var insufficient *domain.InsufficientFundsError
		if errors.As(err, &insufficient) {
			observability.IncrementInsufficientFunds(insufficient.Currency)
		}
		return nil, err
	}

	observability.IncrementTransaction(op.Type)
	p.logger.Info("transaction committed",
		zap.String("transaction_id", res.ID.String()),
		zap.String("type", res.TransactionType),
		zap.String("amount", res.Amount),
		zap.String("currency", res.Currency),
	)
	return res, nil
}

// convert moves funds between the gross (source) and settlement (target)
// currencies. Only base<->foreign pairs are supported; the foreign side is
// always priced against the base via the request's rate.
func (p *Processor) convert(ctx context.Context, tx Tx, op Operation) (*Result, error) {
	source := *op.GrossCurrency
	target := op.Currency
	rate := *op.ExchangeRate
	base := p.registry.Base().Code

	if source.Code != base && target.Code != base {
		return nil, domain.ErrUnsupportedConversion
	}

	balances, err := lockBalances(ctx, tx, source.Code, target.Code)
	if err != nil {
		return nil, err
	}
	sourceBalance := balances[source.Code]
	targetBalance := balances[target.Code]

	var debit decimal.Decimal
	if source.Code == base {
		debit = op.Amount.Mul(rate)
	} else {
		debit = op.Amount.Div(rate)
	}

	if err := sourceBalance.CheckSufficient(debit); err != nil {
		return nil, err
	}
	if err := Withdraw(ctx, tx, sourceBalance, debit); err != nil {
		return nil, err
	}
	if err := Deposit(ctx, tx, targetBalance, op.Amount); err != nil {
		return nil, err
	}

	txn, err := p.record(ctx, tx, op)
	if err != nil {
		return nil, err
	}
	return newResult(txn, sourceBalance, targetBalance), nil
}

// spendService debits the base balance: directly for base-currency spends,
// otherwise by amount * rate (spends always settle in the base currency).
func (p *Processor) spendService(ctx context.Context, tx Tx, op Operation) (*Result, error) {
	base := p.registry.Base().Code
	baseBalance, err := tx.BalanceForUpdate(ctx, base)
	if err != nil {
		return nil, err
	}

	debit := op.Amount
	if op.Currency.Code != base {
		debit = op.Amount.Mul(*op.ExchangeRate)
	}

	if err := baseBalance.CheckSufficient(debit); err != nil {
		return nil, err
	}
	if err := Withdraw(ctx, tx, baseBalance, debit); err != nil {
		return nil, err
	}

	txn, err := p.record(ctx, tx, op)
	if err != nil {
		return nil, err
	}
	return newResult(txn, baseBalance), nil
}

// topUpAccount credits the base balance; deposits cannot fail on balance
// grounds so no sufficiency check applies.
func (p *Processor) topUpAccount(ctx context.Context, tx Tx, op Operation) (*Result, error) {
	base := p.registry.Base().Code
	baseBalance, err := tx.BalanceForUpdate(ctx, base)
	if err != nil {
		return nil, err
	}

	credit := op.Amount
	if op.Currency.Code != base {
		credit = op.Amount.Mul(*op.ExchangeRate)
	}

	if err := Deposit(ctx, tx, baseBalance, credit); err != nil {
		return nil, err
	}

	txn, err := p.record(ctx, tx, op)
	if err != nil {
		return nil, err
	}
	return newResult(txn, baseBalance), nil
}

// record appends the single immutable transaction for a successful run.
func (p *Processor) record(ctx context.Context, tx Tx, op Operation) (*models.Transaction, error) {
	txn := &models.Transaction{
		ID:        uuid.New(),
		Type:      op.Type,
		Amount:    domain.RoundAmount(op.Amount),
		Currency:  op.Currency.Code,
		CreatedAt: time.Now().UTC(),
	}
	if op.GrossCurrency != nil {
		code := op.GrossCurrency.Code
		rate := domain.RoundRate(*op.ExchangeRate)
		txn.GrossCurrency = &code
		txn.ExchangeRate = &rate
	}

	if err := tx.AppendTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return txn, nil
}

// lockBalances acquires both rows in lexicographic code order so that
// concurrent opposite-direction conversions cannot deadlock.
func lockBalances(ctx context.Context, tx Tx, codeA, codeB string) (map[string]*models.Balance, error) {
	first, second := codeA, codeB
	if first > second {
		first, second = second, first
	}

	balances := make(map[string]*models.Balance, 2)
	for _, code := range []string{first, second} {
		b, err := tx.BalanceForUpdate(ctx, code)
		if err != nil {
			return nil, err
		}
		balances[code] = b
	}
	return balances, nil
}

func newResult(txn *models.Transaction, touched ...*models.Balance) *Result {
	res := &Result{
		ID:              txn.ID,
		TransactionType: txn.Type,
		Amount:          domain.FormatAmount(txn.Amount),
		Currency:        txn.Currency,
		GrossCurrency:   txn.GrossCurrency,
		CreatedAt:       txn.CreatedAt,
		Balances:        make(map[string]string, len(touched)),
	}
	if txn.ExchangeRate != nil {
		rate := domain.FormatRate(*txn.ExchangeRate)
		res.ExchangeRate = &rate
	}
	for _, b := range touched {
		res.Balances[b.Currency] = domain.FormatBalance(b.Amount)
	}
	return res
}
