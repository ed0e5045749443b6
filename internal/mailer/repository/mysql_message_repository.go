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

const mysqlMessageColumns = `id, to_address, subject, body, is_html, status, priority,
	retry_count, max_retries, created_at, scheduled_for, sent_at, next_retry_at,
	error_message, last_error_details, correlation_id`

// MySQLMessageRepository handles queue message persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new MySQLMessageRepository.
func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{db: db}
}

// Create inserts a new queue message.
func (r *MySQLMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO queue_messages (id, to_address, subject, body, is_html, status, priority,
			  retry_count, max_retries, created_at, scheduled_for, sent_at, next_retry_at,
			  error_message, last_error_details, correlation_id)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	idBytes, err := msg.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	correlationBytes, err := uuidToBytes(msg.CorrelationID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal correlation id")
	}

	_, err = querier.ExecContext(ctx, query,
		idBytes, msg.To, msg.Subject, msg.Body, msg.IsHTML, msg.Status, msg.Priority,
		msg.RetryCount, msg.MaxRetries, msg.CreatedAt, msg.ScheduledFor, msg.SentAt,
		msg.NextRetryAt, msg.ErrorMessage, msg.LastErrorDetails, correlationBytes,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create queue message")
	}

	return nil
}

// GetByID retrieves a queue message by id.
func (r *MySQLMessageRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlMessageColumns + ` FROM queue_messages WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal message id")
	}

	msg, err := scanMySQLMessage(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get queue message")
	}

	return msg, nil
}

// GetEligible retrieves up to limit dispatchable messages ordered by priority
// lane then creation time, claimed with FOR UPDATE SKIP LOCKED.
func (r *MySQLMessageRepository) GetEligible(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + mysqlMessageColumns + `
			  FROM queue_messages
			  WHERE (status = ? AND (scheduled_for IS NULL OR scheduled_for <= ?))
			     OR (status = ? AND next_retry_at <= ?)
			  ORDER BY priority ASC, created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query,
		domain.MessageStatusPending, now, domain.MessageStatusRetry, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query eligible messages")
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.Message
	for rows.Next() {
		msg, err := scanMySQLMessage(rows)
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
func (r *MySQLMessageRepository) Update(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE queue_messages
			  SET status = ?, retry_count = ?, sent_at = ?, next_retry_at = ?,
			      error_message = ?, last_error_details = ?, correlation_id = ?
			  WHERE id = ?`

	idBytes, err := msg.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	correlationBytes, err := uuidToBytes(msg.CorrelationID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal correlation id")
	}

	_, err = querier.ExecContext(ctx, query,
		msg.Status, msg.RetryCount, msg.SentAt, msg.NextRetryAt,
		msg.ErrorMessage, msg.LastErrorDetails, correlationBytes, idBytes,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update queue message")
	}

	return nil
}

// DetachCorrelation clears the correlation reference on all messages linked
// to the given business entity and returns the affected count.
func (r *MySQLMessageRepository) DetachCorrelation(
	ctx context.Context,
	correlationID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE queue_messages SET correlation_id = NULL WHERE correlation_id = ?`

	idBytes, err := correlationID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal correlation id")
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
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
func (r *MySQLMessageRepository) Stats(ctx context.Context) (*domain.QueueStats, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT
			  COALESCE(SUM(status = ?), 0),
			  COALESCE(SUM(status = ?), 0),
			  COALESCE(SUM(status = ?), 0),
			  COALESCE(SUM(status = ?), 0),
			  MIN(CASE WHEN status = ? THEN created_at END)
			  FROM queue_messages`

	var stats domain.QueueStats
	var oldestPending sql.NullTime

	err := querier.QueryRowContext(ctx, query,
		domain.MessageStatusPending, domain.MessageStatusRetry,
		domain.MessageStatusSent, domain.MessageStatusFailed,
		domain.MessageStatusPending,
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

// scanMySQLMessage scans one queue message row, converting BINARY(16) ids.
func scanMySQLMessage(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var idBytes, correlationBytes []byte

	err := row.Scan(
		&idBytes, &msg.To, &msg.Subject, &msg.Body, &msg.IsHTML, &msg.Status, &msg.Priority,
		&msg.RetryCount, &msg.MaxRetries, &msg.CreatedAt, &msg.ScheduledFor, &msg.SentAt,
		&msg.NextRetryAt, &msg.ErrorMessage, &msg.LastErrorDetails, &correlationBytes,
	)
	if err != nil {
		return nil, err
	}

	if err := msg.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}

	if correlationBytes != nil {
		var correlationID uuid.UUID
		if err := correlationID.UnmarshalBinary(correlationBytes); err != nil {
			return nil, err
		}
		msg.CorrelationID = &correlationID
	}

	return &msg, nil
}

// uuidToBytes converts an optional UUID to its BINARY(16) form, or nil.
func uuidToBytes(id *uuid.UUID) ([]byte, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}
