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

// PostgreSQLDeliveryAttemptRepository handles audit trail persistence for PostgreSQL.
// Rows are append-only: no update or delete operations exist.
type PostgreSQLDeliveryAttemptRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeliveryAttemptRepository creates a new PostgreSQLDeliveryAttemptRepository.
func NewPostgreSQLDeliveryAttemptRepository(db *sql.DB) *PostgreSQLDeliveryAttemptRepository {
	return &PostgreSQLDeliveryAttemptRepository{db: db}
}

// Create inserts a new delivery attempt record.
func (r *PostgreSQLDeliveryAttemptRepository) Create(
	ctx context.Context,
	attempt *domain.DeliveryAttempt,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO delivery_attempts (id, message_id, to_address, subject, success,
			  attempt_number, attempted_at, duration_ms, error_message, error_details, smtp_response)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(ctx, query,
		attempt.ID, attempt.MessageID, attempt.To, attempt.Subject, attempt.Success,
		attempt.AttemptNumber, attempt.AttemptedAt, attempt.Duration.Milliseconds(),
		attempt.ErrorMessage, attempt.ErrorDetails, attempt.SMTPResponse,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create delivery attempt")
	}

	return nil
}

// ListByMessage retrieves all attempts for a message, oldest first.
func (r *PostgreSQLDeliveryAttemptRepository) ListByMessage(
	ctx context.Context,
	messageID uuid.UUID,
) ([]*domain.DeliveryAttempt, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, message_id, to_address, subject, success, attempt_number,
			  attempted_at, duration_ms, error_message, error_details, smtp_response
			  FROM delivery_attempts
			  WHERE message_id = $1
			  ORDER BY attempted_at ASC`

	rows, err := querier.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list delivery attempts")
	}
	defer rows.Close() //nolint:errcheck

	attempts := make([]*domain.DeliveryAttempt, 0)
	for rows.Next() {
		var attempt domain.DeliveryAttempt
		var durationMs int64

		err := rows.Scan(
			&attempt.ID, &attempt.MessageID, &attempt.To, &attempt.Subject, &attempt.Success,
			&attempt.AttemptNumber, &attempt.AttemptedAt, &durationMs,
			&attempt.ErrorMessage, &attempt.ErrorDetails, &attempt.SMTPResponse,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan delivery attempt")
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
func (r *PostgreSQLDeliveryAttemptRepository) LastAttemptAt(
	ctx context.Context,
) (*time.Time, error) {
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
