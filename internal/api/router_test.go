package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avolkhin/billing-ledger/internal/api"
	"github.com/avolkhin/billing-ledger/internal/config"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/avolkhin/billing-ledger/internal/testutil/memledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, balances map[string]string) (*httptest.Server, *memledger.Store) {
	t.Helper()

	registry, err := ledger.NewRegistry([]models.Currency{
		{Code: "RUB", Name: "Russian Ruble"},
		{Code: "USD", Name: "US Dollar"},
		{Code: "EUR", Name: "Euro"},
	}, "RUB")
	require.NoError(t, err)

	store := memledger.New()
	for code, amount := range balances {
		store.SeedBalance(code, decimal.RequireFromString(amount))
	}

	cfg := &config.Config{PublicRateLimitRPS: 1000}
	logger := zap.NewNop()
	validator := ledger.NewValidator(registry)
	processor := ledger.NewProcessor(store, registry, logger)

	router := api.NewRouter(cfg, logger, nil, nil, nil, validator, processor, store)
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body map[string]string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type resultBody struct {
	ID              string            `json:"id"`
	TransactionType string            `json:"transaction_type"`
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	GrossCurrency   *string           `json:"gross_currency"`
	ExchangeRate    *string           `json:"exchange_rate"`
	Balances        map[string]string `json:"balances"`
}

func TestConversionEndpoint(t *testing.T) {
	srv, store := newTestServer(t, map[string]string{"RUB": "100000", "USD": "1000"})

	resp := postJSON(t, srv, "/api/transactions/conversion", map[string]string{
		"sum": "100", "currency_id": "USD", "gross_currency_id": "RUB", "exchange_rate": "85",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body resultBody
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "conversion", body.TransactionType)
	assert.Equal(t, "100.00000", body.Amount)
	assert.Equal(t, "USD", body.Currency)
	require.NotNil(t, body.GrossCurrency)
	assert.Equal(t, "RUB", *body.GrossCurrency)
	require.NotNil(t, body.ExchangeRate)
	assert.Equal(t, "85.0000000000000000", *body.ExchangeRate)
	assert.Equal(t, map[string]string{"RUB": "91500.00", "USD": "1100.00"}, body.Balances)

	require.Len(t, store.Transactions(), 1)
}

func TestAccountTopUpEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000"})

	resp := postJSON(t, srv, "/api/transactions/account-topup", map[string]string{
		"sum": "5000", "currency_id": "rub",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body resultBody
	decodeBody(t, resp, &body)
	assert.Equal(t, "account_topup", body.TransactionType)
	assert.Equal(t, "5000.00000", body.Amount)
	assert.Nil(t, body.GrossCurrency)
	assert.Nil(t, body.ExchangeRate)
	assert.Equal(t, map[string]string{"RUB": "105000.00"}, body.Balances)
}

func TestServiceSpendEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000"})

	resp := postJSON(t, srv, "/api/transactions/service-spend", map[string]string{
		"sum": "1000", "currency_id": "RUB",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body resultBody
	decodeBody(t, resp, &body)
	assert.Equal(t, "service_spend", body.TransactionType)
	assert.Equal(t, map[string]string{"RUB": "99000.00"}, body.Balances)
}

func TestValidationErrorsReturnFieldMap(t *testing.T) {
	srv, store := newTestServer(t, map[string]string{"RUB": "100000"})

	resp := postJSON(t, srv, "/api/transactions/account-topup", map[string]string{
		"sum": "-10", "currency_id": "GBP",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var fields map[string][]string
	decodeBody(t, resp, &fields)
	assert.Contains(t, fields["sum"], "must be greater than zero")
	assert.Contains(t, fields["currency_id"], "currency GBP is not supported")
	assert.Empty(t, store.Transactions())
}

func TestNonBaseTopUpWithoutBridgeFields(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000", "USD": "1000"})

	resp := postJSON(t, srv, "/api/transactions/account-topup", map[string]string{
		"sum": "100", "currency_id": "USD",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var fields map[string][]string
	decodeBody(t, resp, &fields)
	assert.Contains(t, fields["non_field_errors"],
		"gross_currency_id and exchange_rate are required when currency is not RUB")
}

func TestInsufficientFundsReturnsPlainError(t *testing.T) {
	srv, store := newTestServer(t, map[string]string{"RUB": "100000", "USD": "1000"})

	resp := postJSON(t, srv, "/api/transactions/conversion", map[string]string{
		"sum": "10000", "currency_id": "USD", "gross_currency_id": "RUB", "exchange_rate": "85",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Contains(t, body["error"], "insufficient funds")
	assert.Empty(t, store.Transactions())

	amount, ok := store.BalanceAmount("RUB")
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("100000")))
}

func TestForeignPairConversionRejected(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000", "USD": "1000", "EUR": "500"})

	resp := postJSON(t, srv, "/api/transactions/conversion", map[string]string{
		"sum": "10", "currency_id": "EUR", "gross_currency_id": "USD", "exchange_rate": "1.1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "conversion must involve the base currency", body["error"])
}

func TestMalformedBodyRejected(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000"})

	resp, err := http.Post(srv.URL+"/api/transactions/account-topup", "application/json",
		bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "invalid request body", body["error"])
}

func TestListTransactionsNewestFirst(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000"})

	for _, sum := range []string{"100", "200"} {
		resp := postJSON(t, srv, "/api/transactions/account-topup", map[string]string{
			"sum": sum, "currency_id": "RUB",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/transactions/?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int `json:"count"`
		Items []struct {
			TransactionType string `json:"transaction_type"`
			Amount          string `json:"amount"`
		} `json:"items"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "200", body.Items[0].Amount)
	assert.Equal(t, "100", body.Items[1].Amount)
	assert.Equal(t, "account_topup", body.Items[0].TransactionType)
}

func TestIdempotencyHeaderIsOptional(t *testing.T) {
	srv, store := newTestServer(t, map[string]string{"RUB": "100000"})

	payload := []byte(`{"sum":"100","currency_id":"RUB"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/transactions/account-topup", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "retry-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// No idempotency store is configured, so the key passes through.
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, store.Transactions(), 1)
}

func TestHealthAndTraceHeaders(t *testing.T) {
	srv, _ := newTestServer(t, map[string]string{"RUB": "100000"})

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}
