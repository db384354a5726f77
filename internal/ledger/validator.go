package ledger

import (
	"fmt"
	"strings"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Request is the external contract of all three operation endpoints.
// Decimal fields arrive as strings so clients never round through floats.
type Request struct {
	Sum             string `json:"sum"`
	CurrencyID      string `json:"currency_id"`
	GrossCurrencyID string `json:"gross_currency_id,omitempty"`
	ExchangeRate    string `json:"exchange_rate,omitempty"`
}

// Operation is a normalized, registry-resolved operation ready for the
// processor. GrossCurrency and ExchangeRate are both set or both nil.
type Operation struct {
	Type          string
	Amount        decimal.Decimal
	Currency      models.Currency
	GrossCurrency *models.Currency
	ExchangeRate  *decimal.Decimal
}

// Validator normalizes raw requests into typed operations. It is pure:
// no store access, no mutation, so re-validating an operation is idempotent.
type Validator struct {
	registry *Registry
}

func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Conversion validates a currency conversion request. The bridging fields
// are unconditionally required.
func (v *Validator) Conversion(req Request) (Operation, error) {
	op, verr := v.validateFields(req, domain.TxTypeConversion)
	if verr.HasErrors() {
		return Operation{}, verr
	}
	if err := v.requireDifferentCurrencies(op); err != nil {
		return Operation{}, err
	}
	if op.GrossCurrency == nil || op.ExchangeRate == nil {
		verr = domain.NewValidationError()
		if op.GrossCurrency == nil {
			verr.Add("gross_currency_id", "required for conversion")
		}
		if op.ExchangeRate == nil {
			verr.Add("exchange_rate", "required for conversion")
		}
		return Operation{}, verr
	}
	return op, nil
}

// ServiceSpend validates a service purchase request. Spends in a non-base
// currency must carry the bridging currency and rate.
func (v *Validator) ServiceSpend(req Request) (Operation, error) {
	op, verr := v.validateFields(req, domain.TxTypeServiceSpend)
	if verr.HasErrors() {
		return Operation{}, verr
	}
	if err := v.requireDifferentCurrencies(op); err != nil {
		return Operation{}, err
	}
	if err := v.requireBridgeForNonBase(op); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// AccountTopUp validates an account top-up request, with the same non-base
// bridging rule as service spends.
func (v *Validator) AccountTopUp(req Request) (Operation, error) {
	op, verr := v.validateFields(req, domain.TxTypeAccountTopUp)
	if verr.HasErrors() {
		return Operation{}, verr
	}
	if err := v.requireDifferentCurrencies(op); err != nil {
		return Operation{}, err
	}
	if err := v.requireBridgeForNonBase(op); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// validateFields runs the field-level checks. Errors on independent fields
// are collected together so the client sees the full picture in one pass.
func (v *Validator) validateFields(req Request, opType string) (Operation, *domain.ValidationError) {
	verr := domain.NewValidationError()
	op := Operation{Type: opType}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Sum))
	switch {
	case req.Sum == "" || err != nil:
		verr.Add("sum", "invalid decimal value")
	case !amount.IsPositive():
		verr.Add("sum", "must be greater than zero")
	default:
		op.Amount = amount
	}

	if strings.TrimSpace(req.CurrencyID) == "" {
		verr.Add("currency_id", "currency is required")
	} else if currency, err := v.registry.Lookup(req.CurrencyID); err != nil {
		verr.Add("currency_id", err.Error())
	} else {
		op.Currency = currency
	}

	if strings.TrimSpace(req.GrossCurrencyID) != "" {
		if gross, err := v.registry.Lookup(req.GrossCurrencyID); err != nil {
			verr.Add("gross_currency_id", err.Error())
		} else {
			op.GrossCurrency = &gross
		}
	}

	if strings.TrimSpace(req.ExchangeRate) != "" {
		rate, err := decimal.NewFromString(strings.TrimSpace(req.ExchangeRate))
		switch {
		case err != nil:
			verr.Add("exchange_rate", "invalid decimal value")
		case !rate.IsPositive():
			verr.Add("exchange_rate", "must be greater than zero")
		default:
			op.ExchangeRate = &rate
		}
	}

	return op, verr
}

func (v *Validator) requireDifferentCurrencies(op Operation) error {
	if op.GrossCurrency != nil && op.GrossCurrency.Code == op.Currency.Code {
		verr := domain.NewValidationError()
		verr.Add(domain.NonFieldErrors, "conversion currencies must differ")
		return verr
	}
	return nil
}

func (v *Validator) requireBridgeForNonBase(op Operation) error {
	base := v.registry.Base().Code
	if op.Currency.Code == base {
		return nil
	}
	if op.GrossCurrency == nil || op.ExchangeRate == nil {
		verr := domain.NewValidationError()
		verr.Add(domain.NonFieldErrors,
			fmt.Sprintf("gross_currency_id and exchange_rate are required when currency is not %s", base))
		return verr
	}
	return nil
}
