package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/database"
	apperrors "github.com/allisson/mailroom/internal/errors"
	"github.com/allisson/mailroom/internal/mailer/domain"
)

// QueueUseCase implements the mail queue business logic. Messages are only
// mutated here: producers insert pending rows via Enqueue and never touch
// existing ones. A single scheduler instance is assumed; concurrent instances
// degrade to at-least-once delivery (the eligibility query skips locked rows,
// but the send/commit pair is not atomic).
type QueueUseCase struct {
	config      Config
	txManager   database.TxManager
	messageRepo MessageRepository
	attemptRepo DeliveryAttemptRepository
	transport   Transport
	retryPolicy RetryPolicy
	logger      *slog.Logger
}

// NewQueueUseCase creates a new QueueUseCase.
func NewQueueUseCase(
	config Config,
	txManager database.TxManager,
	messageRepo MessageRepository,
	attemptRepo DeliveryAttemptRepository,
	transport Transport,
	logger *slog.Logger,
) *QueueUseCase {
	return &QueueUseCase{
		config:      config,
		txManager:   txManager,
		messageRepo: messageRepo,
		attemptRepo: attemptRepo,
		transport:   transport,
		retryPolicy: RetryPolicy{BaseDelay: config.RetryBaseDelay},
		logger:      logger,
	}
}

// Enqueue persists a new pending message. It has no side effects beyond the
// store write; delivery happens asynchronously in scheduler cycles.
func (uc *QueueUseCase) Enqueue(ctx context.Context, input EnqueueInput) (*domain.Message, error) {
	priority := input.Priority
	if priority == 0 {
		priority = uc.config.DefaultPriority
	}
	if !priority.IsValid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid priority")
	}

	maxRetries := input.MaxRetries
	if maxRetries == 0 {
		maxRetries = uc.config.MaxRetries
	}
	if maxRetries < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "max retries must be positive")
	}

	msg := &domain.Message{
		ID:            uuid.Must(uuid.NewV7()),
		To:            input.To,
		Subject:       input.Subject,
		Body:          input.Body,
		IsHTML:        input.IsHTML,
		Status:        domain.MessageStatusPending,
		Priority:      priority,
		RetryCount:    0,
		MaxRetries:    maxRetries,
		CreatedAt:     time.Now().UTC(),
		ScheduledFor:  input.ScheduledFor,
		CorrelationID: input.CorrelationID,
	}

	if err := uc.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("message enqueued",
			slog.String("message_id", msg.ID.String()),
			slog.Int("priority", int(msg.Priority)),
		)
	}

	return msg, nil
}

// Start runs the periodic scheduler until the context is cancelled. A failure
// inside one cycle is logged and does not terminate the loop.
func (uc *QueueUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting mail queue scheduler",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping mail queue scheduler")
			}
			return ctx.Err()
		case <-ticker.C:
			processed, err := uc.ProcessQueue(ctx, uc.config.BatchSize)
			if err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process mail queue", slog.Any("error", err))
				}
				continue
			}
			if uc.logger != nil && processed > 0 {
				uc.logger.Info("mail queue cycle finished", slog.Int("processed", processed))
			}
		}
	}
}

// ProcessQueue runs one dispatch cycle inside a transaction: it selects up to
// batchSize eligible messages (claiming them via row locks), attempts delivery
// for each sequentially, and persists the updated state plus one audit row per
// attempt. It returns the number of messages processed.
func (uc *QueueUseCase) ProcessQueue(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = uc.config.BatchSize
	}

	var processed int
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		messages, err := uc.messageRepo.GetEligible(ctx, batchSize, now)
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("dispatching messages", slog.Int("count", len(messages)))
		}

		for _, msg := range messages {
			if err := uc.dispatch(ctx, msg); err != nil {
				return err
			}
			processed++
		}

		return nil
	})

	return processed, err
}

// dispatch attempts delivery of a single message and persists the outcome.
// Transport failures are recovered via the retry policy; only persistence
// failures propagate and abort the cycle.
func (uc *QueueUseCase) dispatch(ctx context.Context, msg *domain.Message) error {
	attemptNumber := msg.RetryCount + 1
	start := time.Now().UTC()

	result, sendErr := uc.transport.Send(ctx, msg)
	duration := time.Since(start)

	attempt := &domain.DeliveryAttempt{
		ID:            uuid.Must(uuid.NewV7()),
		MessageID:     msg.ID,
		To:            msg.To,
		Subject:       msg.Subject,
		AttemptNumber: attemptNumber,
		AttemptedAt:   start,
		Duration:      duration,
	}

	if sendErr != nil {
		summary, detail, smtpResponse := describeFailure(sendErr)
		attempt.Success = false
		attempt.ErrorMessage = &summary
		attempt.ErrorDetails = &detail
		if smtpResponse != "" {
			attempt.SMTPResponse = &smtpResponse
		}

		msg.ErrorMessage = &summary
		msg.LastErrorDetails = &detail
		uc.retryPolicy.Apply(msg, time.Now().UTC())

		if uc.logger != nil {
			uc.logger.Error("delivery attempt failed",
				slog.String("message_id", msg.ID.String()),
				slog.Int("attempt", attemptNumber),
				slog.String("status", string(msg.Status)),
				slog.Any("error", sendErr),
			)
		}
	} else {
		attempt.Success = true
		if result != nil && result.SMTPResponse != "" {
			response := result.SMTPResponse
			attempt.SMTPResponse = &response
		}
		msg.MarkSent(time.Now().UTC())

		if uc.logger != nil {
			uc.logger.Info("message delivered",
				slog.String("message_id", msg.ID.String()),
				slog.Int("attempt", attemptNumber),
				slog.Duration("duration", duration),
			)
		}
	}

	if err := uc.messageRepo.Update(ctx, msg); err != nil {
		return err
	}

	return uc.attemptRepo.Create(ctx, attempt)
}

// Stats returns the read-only queue rollup; it never mutates state.
func (uc *QueueUseCase) Stats(ctx context.Context) (*domain.QueueStats, error) {
	stats, err := uc.messageRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	lastAttemptAt, err := uc.attemptRepo.LastAttemptAt(ctx)
	if err != nil {
		return nil, err
	}
	stats.LastAttemptAt = lastAttemptAt

	return stats, nil
}

// GetMessage retrieves a single queue message by id.
func (uc *QueueUseCase) GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return uc.messageRepo.GetByID(ctx, id)
}

// ListAttempts returns the audit trail of a message, oldest attempt first.
func (uc *QueueUseCase) ListAttempts(
	ctx context.Context,
	messageID uuid.UUID,
) ([]*domain.DeliveryAttempt, error) {
	return uc.attemptRepo.ListByMessage(ctx, messageID)
}

// DetachCorrelation clears the correlation reference on all messages linked
// to the given business entity. The messages themselves are kept.
func (uc *QueueUseCase) DetachCorrelation(
	ctx context.Context,
	correlationID uuid.UUID,
) (int64, error) {
	return uc.messageRepo.DetachCorrelation(ctx, correlationID)
}

// TestTransport probes transport connectivity, bypassing the queue.
func (uc *QueueUseCase) TestTransport(ctx context.Context) error {
	if err := uc.transport.Ping(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	return nil
}

// describeFailure splits an attempt error into a short summary, full detail
// and the provider status line when the transport exposed one.
func describeFailure(err error) (summary, detail, smtpResponse string) {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Summary, transportErr.Detail, transportErr.SMTPResponse
	}
	return err.Error(), err.Error(), ""
}
