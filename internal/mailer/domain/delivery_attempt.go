package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryAttempt is one immutable audit record per dispatch attempt.
// Rows are written once by the dispatcher and never mutated or deleted.
type DeliveryAttempt struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	// To and Subject are snapshots of the message payload at attempt time.
	To            string
	Subject       string
	Success       bool
	AttemptNumber int
	AttemptedAt   time.Time
	Duration      time.Duration
	ErrorMessage  *string
	ErrorDetails  *string
	// SMTPResponse carries the provider diagnostic (status line) when available.
	SMTPResponse *string
}
