package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNormalizesBaseCurrency(t *testing.T) {
	t.Setenv("BASE_CURRENCY", " rub ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "RUB", cfg.BaseCurrency)
}

func TestLoadPrefixedAliasWins(t *testing.T) {
	t.Setenv("LEDGER_BASE_CURRENCY", "usd")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
}

func TestLoadSplitsSeedCurrencies(t *testing.T) {
	t.Setenv("SEED_CURRENCIES", "RUB:Russian Ruble, USD:US Dollar ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"RUB:Russian Ruble", "USD:US Dollar"}, cfg.SeedCurrencies)
}

func TestLoadClampsRateLimitToOne(t *testing.T) {
	t.Setenv("PUBLIC_RATE_LIMIT_RPS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.PublicRateLimitRPS)
}

func TestLoadRejectsInvalidIdempotencyTTL(t *testing.T) {
	t.Setenv("IDEMPOTENCY_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
