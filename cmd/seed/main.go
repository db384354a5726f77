// Command seed provisions the ledger: it creates the schema if absent and
// inserts the configured currency set with one balance row per currency.
// Existing rows are left untouched, so re-running is safe.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avolkhin/billing-ledger/internal/config"
	"github.com/avolkhin/billing-ledger/internal/db"
	"github.com/avolkhin/billing-ledger/internal/models"
	"github.com/avolkhin/billing-ledger/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	amount, err := decimal.NewFromString(cfg.SeedAmount)
	if err != nil {
		return fmt.Errorf("invalid SEED_AMOUNT %q: %w", cfg.SeedAmount, err)
	}

	currencies, err := parseCurrencies(cfg.SeedCurrencies, cfg.BaseCurrency)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	repo := repository.NewRepository(pool)
	for _, c := range currencies {
		if err := repo.UpsertCurrency(ctx, c); err != nil {
			return err
		}
		if err := repo.SeedBalance(ctx, c.Code, amount); err != nil {
			return err
		}
		logger.Info("currency seeded",
			zap.String("code", c.Code),
			zap.String("initial_amount", amount.StringFixed(2)),
		)
	}

	logger.Info("seeding complete", zap.Int("currencies", len(currencies)), zap.String("base", cfg.BaseCurrency))
	return nil
}

// parseCurrencies expands "CODE:Name" entries and guarantees the base
// currency is part of the set.
func parseCurrencies(entries []string, base string) ([]models.Currency, error) {
	var currencies []models.Currency
	seen := make(map[string]bool)
	for _, entry := range entries {
		code, name, _ := strings.Cut(entry, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			return nil, fmt.Errorf("invalid currency entry %q", entry)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		currencies = append(currencies, models.Currency{Code: code, Name: strings.TrimSpace(name)})
	}
	if !seen[base] {
		currencies = append(currencies, models.Currency{Code: base})
	}
	return currencies, nil
}
