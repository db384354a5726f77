package worker

import (
	"context"
	"sync"
	"time"

	"github.com/avolkhin/billing-ledger/internal/observability"
	"github.com/avolkhin/billing-ledger/internal/repository"
	"go.uber.org/zap"
)

// BalanceSnapshotWorker periodically exports committed balance amounts as
// Prometheus gauges. Snapshots are plain MVCC reads: they never contend
// with operation row locks.
type BalanceSnapshotWorker struct {
	repo     *repository.Repository
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBalanceSnapshotWorker constructs a worker with a default one-minute interval.
func NewBalanceSnapshotWorker(repo *repository.Repository) *BalanceSnapshotWorker {
	return &BalanceSnapshotWorker{
		repo:     repo,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *BalanceSnapshotWorker) WithInterval(interval time.Duration) *BalanceSnapshotWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and snapshots balances at the configured interval.
func (w *BalanceSnapshotWorker) Start(ctx context.Context) {
	zap.L().Info("balance snapshot worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("balance snapshot worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("balance snapshot worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *BalanceSnapshotWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *BalanceSnapshotWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *BalanceSnapshotWorker) runOnce(ctx context.Context) {
	balances, err := w.repo.ListBalances(ctx)
	if err != nil {
		observability.IncrementWorkerRun("balance_snapshot", "failed")
		zap.L().Error("balance snapshot failed", zap.Error(err))
		return
	}
	for _, b := range balances {
		amount, _ := b.Amount.Float64()
		observability.SetBalanceAmount(b.Currency, amount)
	}
	observability.IncrementWorkerRun("balance_snapshot", "success")
}
