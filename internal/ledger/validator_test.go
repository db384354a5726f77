package ledger_test

import (
	"testing"

	"github.com/avolkhin/billing-ledger/internal/domain"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestValidatorFieldChecks(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	cases := []struct {
		name    string
		req     ledger.Request
		field   string
		message string
	}{
		{
			name:    "empty_sum",
			req:     ledger.Request{Sum: "", CurrencyID: "RUB"},
			field:   "sum",
			message: "invalid decimal value",
		},
		{
			name:    "non_numeric_sum",
			req:     ledger.Request{Sum: "abc", CurrencyID: "RUB"},
			field:   "sum",
			message: "invalid decimal value",
		},
		{
			name:    "negative_sum",
			req:     ledger.Request{Sum: "-100", CurrencyID: "RUB"},
			field:   "sum",
			message: "must be greater than zero",
		},
		{
			name:    "zero_sum",
			req:     ledger.Request{Sum: "0", CurrencyID: "RUB"},
			field:   "sum",
			message: "must be greater than zero",
		},
		{
			name:    "missing_currency",
			req:     ledger.Request{Sum: "100"},
			field:   "currency_id",
			message: "currency is required",
		},
		{
			name:    "unknown_currency",
			req:     ledger.Request{Sum: "100", CurrencyID: "GBP"},
			field:   "currency_id",
			message: "currency GBP is not supported",
		},
		{
			name:    "unknown_gross_currency",
			req:     ledger.Request{Sum: "100", CurrencyID: "RUB", GrossCurrencyID: "GBP", ExchangeRate: "85"},
			field:   "gross_currency_id",
			message: "currency GBP is not supported",
		},
		{
			name:    "non_numeric_rate",
			req:     ledger.Request{Sum: "100", CurrencyID: "USD", GrossCurrencyID: "RUB", ExchangeRate: "fast"},
			field:   "exchange_rate",
			message: "invalid decimal value",
		},
		{
			name:    "negative_rate",
			req:     ledger.Request{Sum: "100", CurrencyID: "USD", GrossCurrencyID: "RUB", ExchangeRate: "-85"},
			field:   "exchange_rate",
			message: "must be greater than zero",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.AccountTopUp(tc.req)
			fields := fieldErrors(t, err)
			assert.Contains(t, fields[tc.field], tc.message)
		})
	}
}

func TestValidatorCollectsIndependentFieldErrors(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	_, err := v.Conversion(ledger.Request{Sum: "nope", CurrencyID: "GBP"})
	fields := fieldErrors(t, err)

	assert.Contains(t, fields, "sum")
	assert.Contains(t, fields, "currency_id")
}

func TestValidatorConversionRequiresBridgeFields(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	_, err := v.Conversion(ledger.Request{Sum: "100", CurrencyID: "USD"})
	fields := fieldErrors(t, err)

	assert.Contains(t, fields["gross_currency_id"], "required for conversion")
	assert.Contains(t, fields["exchange_rate"], "required for conversion")
}

func TestValidatorConversionRejectsSameCurrencies(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	_, err := v.Conversion(ledger.Request{
		Sum: "100", CurrencyID: "usd", GrossCurrencyID: "USD", ExchangeRate: "85",
	})
	fields := fieldErrors(t, err)

	assert.Contains(t, fields[domain.NonFieldErrors], "conversion currencies must differ")
}

func TestValidatorNonBaseOperationsRequireBridge(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))
	req := ledger.Request{Sum: "100", CurrencyID: "USD"}

	for name, validate := range map[string]func(ledger.Request) (ledger.Operation, error){
		"service_spend": v.ServiceSpend,
		"account_topup": v.AccountTopUp,
	} {
		validate := validate
		t.Run(name, func(t *testing.T) {
			_, err := validate(req)
			fields := fieldErrors(t, err)
			assert.Contains(t, fields[domain.NonFieldErrors],
				"gross_currency_id and exchange_rate are required when currency is not RUB")
		})
	}
}

func TestValidatorBaseOperationsNeedNoBridge(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	op, err := v.AccountTopUp(ledger.Request{Sum: "5000", CurrencyID: "rub"})
	require.NoError(t, err)

	assert.Equal(t, domain.TxTypeAccountTopUp, op.Type)
	assert.Equal(t, "RUB", op.Currency.Code)
	assert.Nil(t, op.GrossCurrency)
	assert.Nil(t, op.ExchangeRate)
	assert.True(t, op.Amount.Equal(decimal.RequireFromString("5000")))
}

func TestValidatorResolvesCodesCaseInsensitively(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))

	op, err := v.Conversion(ledger.Request{
		Sum: "100", CurrencyID: "usd", GrossCurrencyID: "rub", ExchangeRate: "85",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", op.Currency.Code)
	require.NotNil(t, op.GrossCurrency)
	assert.Equal(t, "RUB", op.GrossCurrency.Code)
	require.NotNil(t, op.ExchangeRate)
	assert.True(t, op.ExchangeRate.Equal(decimal.RequireFromString("85")))
}

func TestValidatorIsIdempotent(t *testing.T) {
	v := ledger.NewValidator(newTestRegistry(t))
	req := ledger.Request{Sum: "100", CurrencyID: "USD", GrossCurrencyID: "RUB", ExchangeRate: "85"}

	first, err := v.Conversion(req)
	require.NoError(t, err)
	second, err := v.Conversion(req)
	require.NoError(t, err)

	assert.Equal(t, first.Type, second.Type)
	assert.Equal(t, first.Currency, second.Currency)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.True(t, first.ExchangeRate.Equal(*second.ExchangeRate))
}
