package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/database"
	apperrors "github.com/allisson/mailroom/internal/errors"
	"github.com/allisson/mailroom/internal/mailer/domain"
)

// MySQLDeliveryAttemptRepository handles audit trail persistence for MySQL.
// Rows are append-only: no update or delete operations exist.
type MySQLDeliveryAttemptRepository struct {
	db *sql.DB
}

// NewMySQLDeliveryAttemptRepository creates a new MySQLDeliveryAttemptRepository.
func NewMySQLDeliveryAttemptRepository(db *sql.DB) *MySQLDeliveryAttemptRepository {
	return &MySQLDeliveryAttemptRepository{db: db}
}

// Create inserts a new delivery attempt record.
func (r *MySQLDeliveryAttemptRepository) Create(
	ctx context.Context,
	attempt *domain.DeliveryAttempt,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO delivery_attempts (id, message_id, to_address, subject, success,
			  attempt_number, attempted_at, duration_ms, error_message, error_details, smtp_response)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	idBytes, err := attempt.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal attempt id")
	}

	messageIDBytes, err := attempt.MessageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	_, err = querier.ExecContext(ctx, query,
		idBytes, messageIDBytes, attempt.To, attempt.Subject, attempt.Success,
		attempt.AttemptNumber, attempt.AttemptedAt, attempt.Duration.Milliseconds(),
		attempt.ErrorMessage, attempt.ErrorDetails, attempt.SMTPResponse,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create delivery attempt")
	}

	return nil
}

// ListByMessage retrieves all attempts for a message, oldest first.
func (r *MySQLDeliveryAttemptRepository) ListByMessage(
	ctx context.Context,
	messageID uuid.UUID,
) ([]*domain.DeliveryAttempt, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, message_id, to_address, subject, success, attempt_number,
			  attempted_at, duration_ms, error_message, error_details, smtp_response
			  FROM delivery_attempts
			  WHERE message_id = ?
			  ORDER BY attempted_at ASC`

	messageIDBytes, err := messageID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal message id")
	}

	rows, err := querier.QueryContext(ctx, query, messageIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list delivery attempts")
	}
	defer rows.Close() //nolint:errcheck

	attempts := make([]*domain.DeliveryAttempt, 0)
	for rows.Next() {
		var attempt domain.DeliveryAttempt
		var idBytes, messageBytes []byte
		var durationMs int64

		err := rows.Scan(
			&idBytes, &messageBytes, &attempt.To, &attempt.Subject, &attempt.Success,
			&attempt.AttemptNumber, &attempt.AttemptedAt, &durationMs,
			&attempt.ErrorMessage, &attempt.ErrorDetails, &attempt.SMTPResponse,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan delivery attempt")
		}

		if err := attempt.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal attempt id")
		}
		if err := attempt.MessageID.UnmarshalBinary(messageBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal message id")
		}

		attempt.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate delivery attempts")
	}

	return attempts, nil
}

// LastAttemptAt returns the most recent attempt time across the whole store,
// or nil when no attempts were recorded yet.
func (r *MySQLDeliveryAttemptRepository) LastAttemptAt(ctx context.Context) (*time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT MAX(attempted_at) FROM delivery_attempts`

	var last sql.NullTime
	if err := querier.QueryRowContext(ctx, query).Scan(&last); err != nil {
		return nil, apperrors.Wrap(err, "failed to query last attempt time")
	}

	if !last.Valid {
		return nil, nil
	}

	t := last.Time
	return &t, nil
}
