// Package usecase implements the mail queue business logic: enqueueing,
// batch dispatch, retry scheduling, and queue statistics.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/mailer/domain"
)

// Config holds queue use case configuration.
type Config struct {
	// Interval is the scheduler cycle period.
	Interval time.Duration
	// BatchSize bounds how many eligible messages one cycle processes.
	BatchSize int
	// MaxRetries is the default retry budget for new messages.
	MaxRetries int
	// RetryBaseDelay is the backoff base (doubled per failed attempt).
	RetryBaseDelay time.Duration
	// DefaultPriority is assigned when producers don't specify one.
	DefaultPriority domain.Priority
}

// MessageRepository defines queue message persistence operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// GetEligible returns up to limit dispatchable messages ordered by
	// ascending priority, then ascending creation time. A message is
	// eligible when it is pending and not deferred past now, or when it is
	// in retry state with next_retry_at due.
	GetEligible(ctx context.Context, limit int, now time.Time) ([]*domain.Message, error)
	Update(ctx context.Context, msg *domain.Message) error
	// DetachCorrelation clears the correlation reference on all messages
	// linked to the given business entity and returns the affected count.
	DetachCorrelation(ctx context.Context, correlationID uuid.UUID) (int64, error)
	// Stats returns per-status counts and the oldest pending creation time.
	Stats(ctx context.Context) (*domain.QueueStats, error)
}

// DeliveryAttemptRepository defines audit trail persistence operations.
type DeliveryAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.DeliveryAttempt) error
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*domain.DeliveryAttempt, error)
	// LastAttemptAt returns the most recent attempt time across the store,
	// or nil when no attempts were recorded yet.
	LastAttemptAt(ctx context.Context) (*time.Time, error)
}

// SendResult carries provider diagnostics from a successful delivery.
type SendResult struct {
	// SMTPResponse is the provider status line, when the transport exposes one.
	SMTPResponse string
}

// TransportError describes a failed delivery attempt with full diagnostic detail.
type TransportError struct {
	// Summary is a short operator-facing failure description.
	Summary string
	// Detail is the full failure detail.
	Detail string
	// SMTPResponse is the provider status line, when available.
	SMTPResponse string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return e.Summary
}

// Transport sends one message and reports success or failure. The dispatcher
// treats every non-nil error as retryable input to the retry policy; it never
// inspects the diagnostic to special-case permanent failures.
type Transport interface {
	Send(ctx context.Context, msg *domain.Message) (*SendResult, error)
	// Ping probes transport connectivity without sending a message.
	Ping(ctx context.Context) error
}

// EnqueueInput contains the parameters for enqueueing a message.
type EnqueueInput struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
	// Priority defaults to the configured default when zero.
	Priority domain.Priority
	// MaxRetries defaults to the configured default when zero.
	MaxRetries int
	// ScheduledFor defers dispatch until the given time when set.
	ScheduledFor  *time.Time
	CorrelationID *uuid.UUID
}

// UseCase defines the operations the queue exposes to producers and operators.
type UseCase interface {
	// Enqueue persists a new pending message and returns it. Delivery is
	// never attempted synchronously.
	Enqueue(ctx context.Context, input EnqueueInput) (*domain.Message, error)
	// ProcessQueue runs one dispatch cycle over up to batchSize eligible
	// messages and returns the number processed.
	ProcessQueue(ctx context.Context, batchSize int) (int, error)
	// Start runs the periodic scheduler until the context is cancelled.
	Start(ctx context.Context) error
	// Stats returns the read-only queue rollup.
	Stats(ctx context.Context) (*domain.QueueStats, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListAttempts(ctx context.Context, messageID uuid.UUID) ([]*domain.DeliveryAttempt, error)
	DetachCorrelation(ctx context.Context, correlationID uuid.UUID) (int64, error)
	// TestTransport probes transport connectivity, bypassing the queue.
	TestTransport(ctx context.Context) error
}
