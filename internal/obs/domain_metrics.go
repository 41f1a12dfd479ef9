package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesCommittedTotal counts sale commit outcomes by result.
	SalesCommittedTotal *prometheus.CounterVec
	// SaleRollbacksTotal counts rolled back sale commits by failing stage.
	SaleRollbacksTotal *prometheus.CounterVec
	// StockWarningsTotal counts best-effort stock decrements that were skipped.
	StockWarningsTotal prometheus.Counter
	// TendersTotal counts tenders recorded on committed sales by method code.
	TendersTotal *prometheus.CounterVec
	// SaleCommitLatency records the commit protocol latency in milliseconds.
	SaleCommitLatency prometheus.Histogram
	// ReceiptTasksTotal counts receipt generation task outcomes.
	ReceiptTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers POS-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesCommittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_committed_total",
			Help:      "Count of sale commit attempts by result.",
		}, []string{"result"})
		SaleRollbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_rollbacks_total",
			Help:      "Count of rolled back sale commits by failing stage.",
		}, []string{"stage"})
		StockWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_decrement_warnings_total",
			Help:      "Number of post-commit stock decrements skipped or failed.",
		})
		TendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenders_total",
			Help:      "Count of tenders recorded on committed sales by payment method.",
		}, []string{"method"})
		SaleCommitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_commit_duration_ms",
			Help:      "Latency of the sale commit protocol in milliseconds.",
			Buckets:   defaultBucketsMS,
		})
		ReceiptTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_tasks_total",
			Help:      "Count of receipt generation task outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, SalesCommittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCommittedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleRollbacksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleRollbacksTotal = v
			}
		})
		mustRegisterCollector(reg, StockWarningsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				StockWarningsTotal = v
			}
		})
		mustRegisterCollector(reg, TendersTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TendersTotal = v
			}
		})
		mustRegisterCollector(reg, SaleCommitLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleCommitLatency = v
			}
		})
		mustRegisterCollector(reg, ReceiptTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptTasksTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
