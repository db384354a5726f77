package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/models"
)

// Registry is an explicitly constructed, read-only lookup of known
// currencies. It is built once at startup and shared by the validator and
// processor; there is no process-wide mutable table.
type Registry struct {
	base   models.Currency
	byCode map[string]models.Currency
}

// NewRegistry builds a registry from the configured currency set. The base
// code must be part of the set.
func NewRegistry(currencies []models.Currency, baseCode string) (*Registry, error) {
	baseCode = strings.ToUpper(strings.TrimSpace(baseCode))
	byCode := make(map[string]models.Currency, len(currencies))
	for _, c := range currencies {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if c.Code == "" {
			return nil, fmt.Errorf("registry: empty currency code")
		}
		byCode[c.Code] = c
	}

	base, ok := byCode[baseCode]
	if !ok {
		return nil, fmt.Errorf("registry: base currency %s not in currency set", baseCode)
	}
	return &Registry{base: base, byCode: byCode}, nil
}

// Lookup resolves a code case-insensitively.
func (r *Registry) Lookup(code string) (models.Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	c, ok := r.byCode[normalized]
	if !ok {
		return models.Currency{}, &domain.CurrencyNotFoundError{Code: normalized}
	}
	return c, nil
}

// Base returns the designated settlement/bridge currency.
func (r *Registry) Base() models.Currency {
	return r.base
}

// Codes returns all known currency codes, sorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
