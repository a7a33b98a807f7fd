package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamledger/vms-api/pkg/logger"
	"github.com/streamledger/vms-api/pkg/messaging"
	"github.com/streamledger/vms-api/pkg/metrics"
)

// Handler processes one task payload. A returned error marks the task
// failed; tasks are fire-and-forget and are not redelivered by the runner.
type Handler func(ctx context.Context, payload []byte) error

// Runner consumes task queues and dispatches payloads to their handlers.
type Runner struct {
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	workerID string

	mu       sync.Mutex
	handlers map[string]Handler
}

func NewRunner(broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Runner {
	workerID := generateWorkerID()
	return &Runner{
		broker:   broker,
		logger:   log.WithFields(map[string]interface{}{"worker_id": workerID}),
		metrics:  m,
		workerID: workerID,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a queue. Must be called before Start.
func (r *Runner) Register(queue string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[queue] = h
}

// Start consumes all registered queues until the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	queues := make(map[string]Handler, len(r.handlers))
	for q, h := range r.handlers {
		queues[q] = h
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for queue, handler := range queues {
		msgs, err := r.broker.Consume(ctx, queue)
		if err != nil {
			return fmt.Errorf("failed to consume queue %s: %w", queue, err)
		}

		wg.Add(1)
		go func(queue string, handler Handler, msgs <-chan []byte) {
			defer wg.Done()
			r.logger.ZL.Info().Str("queue", queue).Msg("worker consuming queue")

			for payload := range msgs {
				r.dispatch(ctx, queue, handler, payload)
			}
			r.logger.ZL.Info().Str("queue", queue).Msg("worker stopped consuming queue")
		}(queue, handler, msgs)
	}

	wg.Wait()
	return nil
}

func (r *Runner) dispatch(ctx context.Context, queue string, handler Handler, payload []byte) {
	timer := prometheus.NewTimer(r.metrics.TaskDuration.WithLabelValues(queue))
	defer timer.ObserveDuration()

	defer func() {
		if p := recover(); p != nil {
			r.metrics.TasksFailed.WithLabelValues(queue).Inc()
			r.logger.ZL.Error().Interface("panic", p).Str("queue", queue).Msg("task handler panicked")
		}
	}()

	if err := handler(ctx, payload); err != nil {
		r.metrics.TasksFailed.WithLabelValues(queue).Inc()
		r.logger.ZL.Error().Err(err).Str("queue", queue).Msg("task failed")
		return
	}
	r.metrics.TasksProcessed.WithLabelValues(queue).Inc()
}

func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
