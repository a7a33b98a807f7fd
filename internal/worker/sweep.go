package worker

import (
	"context"
	"time"

	"github.com/streamledger/vms-api/internal/service/subscription"
	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/metrics"
)

const sweepTimeout = 5 * time.Minute

// SubscriptionSweeper reverts overdue paid subscriptions to trial. It runs
// on a daily schedule and has no caller; failures are logged and the next
// run re-evaluates anything still overdue.
type SubscriptionSweeper struct {
	subs    subscription.Servicer
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewSubscriptionSweeper(subs subscription.Servicer, m *metrics.Metrics, log *logger.Logger) *SubscriptionSweeper {
	return &SubscriptionSweeper{subs: subs, metrics: m, logger: log}
}

// Run executes one sweep pass. The whole pass is one transaction: either
// every overdue organization reverts to trial or none do.
func (s *SubscriptionSweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	s.metrics.SweepRuns.Inc()
	start := time.Now()

	n, err := s.subs.ExpireOverdue(ctx, start)
	if err != nil {
		s.metrics.SweepFailures.Inc()
		s.logger.Error(err, "subscription sweep failed")
		return
	}

	s.metrics.SubscriptionExpired.Add(float64(n))
	s.logger.WithFields(map[string]interface{}{
		"expired":  n,
		"duration": time.Since(start).String(),
	}).Info("subscription sweep completed")
}
