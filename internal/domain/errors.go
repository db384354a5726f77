package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NonFieldErrors is the key validation failures are reported under when
// they concern the request as a whole rather than a single field.
const NonFieldErrors = "non_field_errors"

// ErrUnsupportedConversion is returned for conversion requests where
// neither side is the base currency.
var ErrUnsupportedConversion = errors.New("conversion must involve the base currency")

// ValidationError maps request field names to human-readable reasons.
// It is HTTP-agnostic; the API layer serializes it as-is.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for a field. Use NonFieldErrors for cross-field rules.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// HasErrors reports whether any message has been recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// InsufficientFundsError is a business-rule violation: the requested debit
// exceeds the available balance. It guarantees no mutation has committed.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Currency  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s %s", e.Available.StringFixed(BalanceScale), e.Currency)
}

// BalanceNotFoundError indicates a provisioning gap: the currency exists
// but no balance row has been seeded for it.
type BalanceNotFoundError struct {
	Currency string
}

func (e *BalanceNotFoundError) Error() string {
	return fmt.Sprintf("no balance configured for currency %s", e.Currency)
}

// CurrencyNotFoundError indicates a code missing from the registry.
type CurrencyNotFoundError struct {
	Code string
}

func (e *CurrencyNotFoundError) Error() string {
	return fmt.Sprintf("currency %s is not supported", e.Code)
}
