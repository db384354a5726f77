package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	transactionCounter       *prometheus.CounterVec
	insufficientFundsCounter *prometheus.CounterVec
	balanceGauge             *prometheus.GaugeVec
	idempotencyCounter       *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transactionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Committed ledger transactions by type",
		}, []string{"type"})

		insufficientFundsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_insufficient_funds_total",
			Help: "Operations aborted because the debit exceeded the balance",
		}, []string{"currency"})

		balanceGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_balance_amount",
			Help: "Current balance amount per currency (snapshot, not exact)",
		}, []string{"currency"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transactionCounter,
			insufficientFundsCounter,
			balanceGauge,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransaction(txType string) {
	if transactionCounter == nil {
		return
	}
	transactionCounter.WithLabelValues(txType).Inc()
}

func IncrementInsufficientFunds(currency string) {
	if insufficientFundsCounter == nil {
		return
	}
	insufficientFundsCounter.WithLabelValues(currency).Inc()
}

func SetBalanceAmount(currency string, amount float64) {
	if balanceGauge == nil {
		return
	}
	balanceGauge.WithLabelValues(currency).Set(amount)
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
