package memledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackDiscardsUncommittedWrites(t *testing.T) {
	store := New()
	store.SeedBalance("RUB", decimal.NewFromInt(100))

	boom := errors.New("boom")
	err := store.RunInTx(context.Background(), func(tx ledger.Tx) error {
		b, err := tx.BalanceForUpdate(context.Background(), "RUB")
		require.NoError(t, err)
		b.Amount = b.Amount.Add(decimal.NewFromInt(50))
		require.NoError(t, tx.SaveBalance(context.Background(), b))
		return boom
	})
	require.ErrorIs(t, err, boom)

	amount, ok := store.BalanceAmount("RUB")
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(100)))
}

func TestRereadWithinUnitOfWorkSeesOwnWrites(t *testing.T) {
	store := New()
	store.SeedBalance("RUB", decimal.NewFromInt(100))

	err := store.RunInTx(context.Background(), func(tx ledger.Tx) error {
		b, err := tx.BalanceForUpdate(context.Background(), "RUB")
		require.NoError(t, err)
		b.Amount = decimal.NewFromInt(70)
		require.NoError(t, tx.SaveBalance(context.Background(), b))

		// A second acquisition must not self-deadlock and must observe
		// the uncommitted write.
		again, err := tx.BalanceForUpdate(context.Background(), "RUB")
		require.NoError(t, err)
		assert.True(t, again.Amount.Equal(decimal.NewFromInt(70)))
		return nil
	})
	require.NoError(t, err)
}

func TestBalanceLockBlocksUntilCommit(t *testing.T) {
	store := New()
	store.SeedBalance("RUB", decimal.NewFromInt(100))

	locked := make(chan struct{})
	release := make(chan struct{})
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- store.RunInTx(context.Background(), func(tx ledger.Tx) error {
			b, err := tx.BalanceForUpdate(context.Background(), "RUB")
			if err != nil {
				return err
			}
			close(locked)
			<-release
			b.Amount = b.Amount.Add(decimal.NewFromInt(50))
			return tx.SaveBalance(context.Background(), b)
		})
	}()

	<-locked
	observed := make(chan decimal.Decimal, 1)
	go func() {
		_ = store.RunInTx(context.Background(), func(tx ledger.Tx) error {
			b, err := tx.BalanceForUpdate(context.Background(), "RUB")
			if err != nil {
				return err
			}
			observed <- b.Amount
			return nil
		})
	}()

	select {
	case <-observed:
		t.Fatal("reader acquired the row while the writer held it")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-writerDone)

	amount := <-observed
	assert.True(t, amount.Equal(decimal.NewFromInt(150)))
}
