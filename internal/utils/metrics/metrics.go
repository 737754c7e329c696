// internal/utils/metrics/metrics.go
package metrics

import (
	"context"
	"time"
)

// Исходы одной попытки отправки бандла
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
)

// RecordAttempt записывает исход одной попытки
func (c *Collector) RecordAttempt(outcome string) {
	if c == nil {
		return
	}
	c.bundleAttempts.WithLabelValues(outcome).Inc()
}

// RecordBundle записывает итог отправки с учетом контекста
func (c *Collector) RecordBundle(ctx context.Context, side string, duration time.Duration, success bool) {
	if c == nil {
		return
	}

	status := "success"
	switch {
	case ctx.Err() != nil:
		status = "cancelled"
	case !success:
		status = "failed"
	}

	c.bundleResults.WithLabelValues(status, side).Inc()
	c.bundleDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// RecordSkip учитывает кошелек, исключенный из батча
func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	c.walletSkips.WithLabelValues(reason).Inc()
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}
