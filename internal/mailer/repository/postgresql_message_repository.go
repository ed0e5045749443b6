// Package repository provides data persistence implementations for mail queue entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/database"
	apperrors "github.com/allisson/mailroom/internal/errors"
	"github.com/allisson/mailroom/internal/mailer/domain"
)

const postgresMessageColumns = `id, to_address, subject, body, is_html, status, priority,
	retry_count, max_retries, created_at, scheduled_for, sent_at, next_retry_at,
	error_message, last_error_details, correlation_id`

// PostgreSQLMessageRepository handles queue message persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLMessageRepository creates a new PostgreSQLMessageRepository.
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{db: db}
}

// Create inserts a new queue message.
func (r *PostgreSQLMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO queue_messages (id, to_address, subject, body, is_html, status, priority,
			  retry_count, max_retries, created_at, scheduled_for, sent_at, next_retry_at,
			  error_message, last_error_details, correlation_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := querier.ExecContext(ctx, query,
		msg.ID, msg.To, msg.Subject, msg.Body, msg.IsHTML, msg.Status, msg.Priority,
		msg.RetryCount, msg.MaxRetries, msg.CreatedAt, msg.ScheduledFor, msg.SentAt,
		msg.NextRetryAt, msg.ErrorMessage, msg.LastErrorDetails, nullUUID(msg.CorrelationID),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create queue message")
	}

	return nil
}

// GetByID retrieves a queue message by id.
func (r *PostgreSQLMessageRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresMessageColumns + ` FROM queue_messages WHERE id = $1`

	msg, err := scanPostgresMessage(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get queue message")
	}

	return msg, nil
}

// GetEligible retrieves up to limit dispatchable messages: pending messages
// whose scheduled_for (if any) is due, and retry messages whose next_retry_at
// is due. Rows are ordered by priority lane then creation time and claimed
// with FOR UPDATE SKIP LOCKED so concurrent schedulers skip each other's rows.
func (r *PostgreSQLMessageRepository) GetEligible(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresMessageColumns + `
			  FROM queue_messages
			  WHERE (status = $1 AND (scheduled_for IS NULL OR scheduled_for <= $3))
			     OR (status = $2 AND next_retry_at <= $3)
			  ORDER BY priority ASC, created_at ASC
			  LIMIT $4
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query,
		domain.MessageStatusPending, domain.MessageStatusRetry, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query eligible messages")
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanPostgresMessage(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan queue message")
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate eligible messages")
	}

	return messages, nil
}

// Update updates a queue message.
func (r *PostgreSQLMessageRepository) Update(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE queue_messages
			  SET status = $1, retry_count = $2, sent_at = $3, next_retry_at = $4,
			      error_message = $5, last_error_details = $6, correlation_id = $7
			  WHERE id = $8`

	_, err := querier.ExecContext(ctx, query,
		msg.Status, msg.RetryCount, msg.SentAt, msg.NextRetryAt,
		msg.ErrorMessage, msg.LastErrorDetails, nullUUID(msg.CorrelationID), msg.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update queue message")
	}

	return nil
}

// DetachCorrelation clears the correlation reference on all messages linked
// to the given business entity and returns the affected count.
func (r *PostgreSQLMessageRepository) DetachCorrelation(
	ctx context.Context,
	correlationID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE queue_messages SET correlation_id = NULL WHERE correlation_id = $1`

	result, err := querier.ExecContext(ctx, query, correlationID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to detach correlation")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected, nil
}

// Stats returns per-status counts and the oldest pending creation time.
func (r *PostgreSQLMessageRepository) Stats(ctx context.Context) (*domain.QueueStats, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT
			  COUNT(*) FILTER (WHERE status = $1),
			  COUNT(*) FILTER (WHERE status = $2),
			  COUNT(*) FILTER (WHERE status = $3),
			  COUNT(*) FILTER (WHERE status = $4),
			  MIN(created_at) FILTER (WHERE status = $1)
			  FROM queue_messages`

	var stats domain.QueueStats
	var oldestPending sql.NullTime

	err := querier.QueryRowContext(ctx, query,
		domain.MessageStatusPending, domain.MessageStatusRetry,
		domain.MessageStatusSent, domain.MessageStatusFailed,
	).Scan(&stats.Pending, &stats.Retrying, &stats.Sent, &stats.Failed, &oldestPending)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query queue stats")
	}

	if oldestPending.Valid {
		t := oldestPending.Time
		stats.OldestPending = &t
	}

	return &stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPostgresMessage scans one queue message row.
func scanPostgresMessage(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var correlationID uuid.NullUUID

	err := row.Scan(
		&msg.ID, &msg.To, &msg.Subject, &msg.Body, &msg.IsHTML, &msg.Status, &msg.Priority,
		&msg.RetryCount, &msg.MaxRetries, &msg.CreatedAt, &msg.ScheduledFor, &msg.SentAt,
		&msg.NextRetryAt, &msg.ErrorMessage, &msg.LastErrorDetails, &correlationID,
	)
	if err != nil {
		return nil, err
	}

	if correlationID.Valid {
		id := correlationID.UUID
		msg.CorrelationID = &id
	}

	return &msg, nil
}

// nullUUID converts an optional UUID to its nullable database form.
func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
