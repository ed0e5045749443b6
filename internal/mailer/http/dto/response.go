package dto

import (
	"time"

	"github.com/allisson/mailroom/internal/mailer/domain"
)

// MessageResponse represents a queued message in API responses.
// The body is excluded from list-style payloads by the handlers; message
// bodies can be large and are only useful when fetching a single message.
type MessageResponse struct {
	ID               string     `json:"id"`
	To               string     `json:"to"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body,omitempty"`
	IsHTML           bool       `json:"is_html"`
	Status           string     `json:"status"`
	Priority         int        `json:"priority"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	CreatedAt        time.Time  `json:"created_at"`
	ScheduledFor     *time.Time `json:"scheduled_for,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	NextRetryAt      *time.Time `json:"next_retry_at,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	LastErrorDetails *string    `json:"last_error_details,omitempty"`
	CorrelationID    *string    `json:"correlation_id,omitempty"`
}

// MapMessageToResponse converts a domain message to an API response.
func MapMessageToResponse(msg *domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:               msg.ID.String(),
		To:               msg.To,
		Subject:          msg.Subject,
		Body:             msg.Body,
		IsHTML:           msg.IsHTML,
		Status:           string(msg.Status),
		Priority:         int(msg.Priority),
		RetryCount:       msg.RetryCount,
		MaxRetries:       msg.MaxRetries,
		CreatedAt:        msg.CreatedAt,
		ScheduledFor:     msg.ScheduledFor,
		SentAt:           msg.SentAt,
		NextRetryAt:      msg.NextRetryAt,
		ErrorMessage:     msg.ErrorMessage,
		LastErrorDetails: msg.LastErrorDetails,
	}

	if msg.CorrelationID != nil {
		id := msg.CorrelationID.String()
		resp.CorrelationID = &id
	}

	return resp
}

// DeliveryAttemptResponse represents one audit trail entry in API responses.
type DeliveryAttemptResponse struct {
	ID            string    `json:"id"`
	MessageID     string    `json:"message_id"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	Success       bool      `json:"success"`
	AttemptNumber int       `json:"attempt_number"`
	AttemptedAt   time.Time `json:"attempted_at"`
	DurationMS    int64     `json:"duration_ms"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	ErrorDetails  *string   `json:"error_details,omitempty"`
	SMTPResponse  *string   `json:"smtp_response,omitempty"`
}

// MapAttemptToResponse converts a domain delivery attempt to an API response.
func MapAttemptToResponse(attempt *domain.DeliveryAttempt) DeliveryAttemptResponse {
	return DeliveryAttemptResponse{
		ID:            attempt.ID.String(),
		MessageID:     attempt.MessageID.String(),
		To:            attempt.To,
		Subject:       attempt.Subject,
		Success:       attempt.Success,
		AttemptNumber: attempt.AttemptNumber,
		AttemptedAt:   attempt.AttemptedAt,
		DurationMS:    attempt.Duration.Milliseconds(),
		ErrorMessage:  attempt.ErrorMessage,
		ErrorDetails:  attempt.ErrorDetails,
		SMTPResponse:  attempt.SMTPResponse,
	}
}

// ListAttemptsResponse wraps the audit trail for one message.
type ListAttemptsResponse struct {
	Attempts []DeliveryAttemptResponse `json:"attempts"`
	Total    int                       `json:"total"`
}

// MapAttemptsToListResponse converts domain delivery attempts to a list response.
func MapAttemptsToListResponse(attempts []*domain.DeliveryAttempt) ListAttemptsResponse {
	items := make([]DeliveryAttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, MapAttemptToResponse(attempt))
	}

	return ListAttemptsResponse{
		Attempts: items,
		Total:    len(items),
	}
}

// DetachCorrelationResponse reports how many messages were detached.
type DetachCorrelationResponse struct {
	Detached int64 `json:"detached"`
}

// ProcessQueueResponse acknowledges an accepted on-demand drain job.
type ProcessQueueResponse struct {
	JobID string `json:"job_id"`
}

// TransportStatusResponse reports the transport connectivity probe outcome.
type TransportStatusResponse struct {
	Status string `json:"status"`
}
