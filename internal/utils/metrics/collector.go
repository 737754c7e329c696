// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector держит метрики сборки и отправки бандлов.
// Все методы безопасны для nil-получателя.
type Collector struct {
	bundleAttempts *prometheus.CounterVec
	bundleResults  *prometheus.CounterVec
	bundleDuration *prometheus.HistogramVec
	walletSkips    *prometheus.CounterVec
	rpcLatency     *prometheus.HistogramVec
}

// NewCollector создает метрики и регистрирует их в reg.
// nil reg оставляет метрики незарегистрированными (тесты).
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bundleAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pumpbundle",
				Name:      "bundle_attempts_total",
				Help:      "Bundle submission attempts by outcome",
			},
			[]string{"outcome"},
		),
		bundleResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pumpbundle",
				Name:      "bundles_total",
				Help:      "Finished bundle submissions by status",
			},
			[]string{"status", "side"},
		),
		bundleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pumpbundle",
				Name:      "bundle_duration_seconds",
				Help:      "Time from first attempt to the final result",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"side"},
		),
		walletSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pumpbundle",
				Name:      "wallet_skips_total",
				Help:      "Wallets left out of a batch by reason",
			},
			[]string{"reason"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pumpbundle",
				Name:      "rpc_latency_seconds",
				Help:      "Node and relay request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			c.bundleAttempts,
			c.bundleResults,
			c.bundleDuration,
			c.walletSkips,
			c.rpcLatency,
		)
	}
	return c
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.bundleAttempts.Reset()
	c.bundleResults.Reset()
	c.bundleDuration.Reset()
	c.walletSkips.Reset()
	c.rpcLatency.Reset()
}

// WalletSkips счетчик пропущенных кошельков по причине.
func (c *Collector) WalletSkips() *prometheus.CounterVec { return c.walletSkips }

// BundleAttempts счетчик попыток отправки по исходу.
func (c *Collector) BundleAttempts() *prometheus.CounterVec { return c.bundleAttempts }
