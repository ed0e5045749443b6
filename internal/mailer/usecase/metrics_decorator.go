package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/metrics"
)

// queueUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type queueUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewQueueUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewQueueUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &queueUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Enqueue records metrics for enqueue operations.
func (q *queueUseCaseWithMetrics) Enqueue(
	ctx context.Context,
	input EnqueueInput,
) (*domain.Message, error) {
	start := time.Now()
	msg, err := q.next.Enqueue(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	q.metrics.RecordOperation(ctx, "mailer", "message_enqueue", status)
	q.metrics.RecordDuration(ctx, "mailer", "message_enqueue", time.Since(start), status)

	return msg, err
}

// ProcessQueue records metrics for dispatch cycles.
func (q *queueUseCaseWithMetrics) ProcessQueue(ctx context.Context, batchSize int) (int, error) {
	start := time.Now()
	processed, err := q.next.ProcessQueue(ctx, batchSize)

	status := "success"
	if err != nil {
		status = "error"
	}

	q.metrics.RecordOperation(ctx, "mailer", "queue_process", status)
	q.metrics.RecordDuration(ctx, "mailer", "queue_process", time.Since(start), status)

	return processed, err
}

// Start delegates to the wrapped scheduler loop; cycles inside the loop are
// already instrumented through ProcessQueue.
func (q *queueUseCaseWithMetrics) Start(ctx context.Context) error {
	return q.next.Start(ctx)
}

// Stats records metrics for statistics queries.
func (q *queueUseCaseWithMetrics) Stats(ctx context.Context) (*domain.QueueStats, error) {
	start := time.Now()
	stats, err := q.next.Stats(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	q.metrics.RecordOperation(ctx, "mailer", "queue_stats", status)
	q.metrics.RecordDuration(ctx, "mailer", "queue_stats", time.Since(start), status)

	return stats, err
}

// GetMessage delegates to the wrapped use case.
func (q *queueUseCaseWithMetrics) GetMessage(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Message, error) {
	return q.next.GetMessage(ctx, id)
}

// ListAttempts delegates to the wrapped use case.
func (q *queueUseCaseWithMetrics) ListAttempts(
	ctx context.Context,
	messageID uuid.UUID,
) ([]*domain.DeliveryAttempt, error) {
	return q.next.ListAttempts(ctx, messageID)
}

// DetachCorrelation delegates to the wrapped use case.
func (q *queueUseCaseWithMetrics) DetachCorrelation(
	ctx context.Context,
	correlationID uuid.UUID,
) (int64, error) {
	return q.next.DetachCorrelation(ctx, correlationID)
}

// TestTransport records metrics for connectivity probes.
func (q *queueUseCaseWithMetrics) TestTransport(ctx context.Context) error {
	start := time.Now()
	err := q.next.TestTransport(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	q.metrics.RecordOperation(ctx, "mailer", "transport_test", status)
	q.metrics.RecordDuration(ctx, "mailer", "transport_test", time.Since(start), status)

	return err
}
