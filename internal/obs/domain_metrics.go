package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingPassTotal counts completed pricing passes by reconciliation outcome.
	PricingPassTotal *prometheus.CounterVec
	// PricingPassDuration records full pricing pass latency in milliseconds.
	PricingPassDuration prometheus.Histogram
	// ReconcileTotal counts server reconciliation attempts by result.
	ReconcileTotal *prometheus.CounterVec
	// FreeLineSyncTotal counts free line synchronizer operations by kind.
	FreeLineSyncTotal *prometheus.CounterVec
	// RuleIndexSize reports the number of rules held by the active index.
	RuleIndexSize prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingPassTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_pass_total",
			Help:      "Count of completed pricing passes by reconciliation outcome.",
		}, []string{"reconciled"})
		PricingPassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_pass_duration_ms",
			Help:      "Latency of a full pricing pass in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		})
		ReconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Count of server reconciliation attempts by result.",
		}, []string{"result"})
		FreeLineSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_line_sync_total",
			Help:      "Count of free line synchronizer operations by kind.",
		}, []string{"op"})
		RuleIndexSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rule_index_size",
			Help:      "Number of rules held by the active pricing index.",
		})

		mustRegisterCollector(reg, PricingPassTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingPassTotal = v
			}
		})
		mustRegisterCollector(reg, PricingPassDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PricingPassDuration = v
			}
		})
		mustRegisterCollector(reg, ReconcileTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReconcileTotal = v
			}
		})
		mustRegisterCollector(reg, FreeLineSyncTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FreeLineSyncTotal = v
			}
		})
		mustRegisterCollector(reg, RuleIndexSize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				RuleIndexSize = v
			}
		})
	})
}

// ObservePricingPass records one completed pricing pass. Safe to call before
// MustRegisterDomainMetrics; unregistered collectors are skipped.
func ObservePricingPass(reconciled bool, d time.Duration) {
	outcome := "false"
	if reconciled {
		outcome = "true"
	}
	if PricingPassTotal != nil {
		PricingPassTotal.WithLabelValues(outcome).Inc()
	}
	if PricingPassDuration != nil {
		PricingPassDuration.Observe(float64(d.Milliseconds()))
	}
}

// ObserveReconcile records the outcome of one server reconciliation attempt.
func ObserveReconcile(result string) {
	if ReconcileTotal != nil {
		ReconcileTotal.WithLabelValues(result).Inc()
	}
}

// ObserveFreeLineSync records a synchronizer mutation by kind.
func ObserveFreeLineSync(op string) {
	if FreeLineSyncTotal != nil {
		FreeLineSyncTotal.WithLabelValues(op).Inc()
	}
}

// SetRuleIndexSize publishes the current rule count of the active index.
func SetRuleIndexSize(n int) {
	if RuleIndexSize != nil {
		RuleIndexSize.Set(float64(n))
	}
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
