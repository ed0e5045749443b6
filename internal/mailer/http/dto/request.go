// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/mailer/usecase"
	customValidation "github.com/allisson/mailroom/internal/validation"
)

// EnqueueMessageRequest contains the parameters for enqueueing a message.
type EnqueueMessageRequest struct {
	To            string     `json:"to" binding:"required"`
	Subject       string     `json:"subject" binding:"required"`
	Body          string     `json:"body" binding:"required"`
	IsHTML        bool       `json:"is_html"`
	Priority      int        `json:"priority"`
	MaxRetries    int        `json:"max_retries"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
	CorrelationID *string    `json:"correlation_id"`
}

// Validate checks if the enqueue request is valid.
func (r *EnqueueMessageRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.To,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoLineBreaks,
			customValidation.Email,
		),
		validation.Field(&r.Subject,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoLineBreaks,
			validation.Length(1, 988),
		),
		validation.Field(&r.Body,
			validation.Required,
		),
		validation.Field(&r.Priority,
			validation.Min(0),
			validation.Max(3),
		),
		validation.Field(&r.MaxRetries,
			validation.Min(0),
			validation.Max(10),
		),
		validation.Field(&r.CorrelationID,
			validation.By(validUUIDPointer),
		),
	)
}

// ToInput converts the request into use case input. The caller must have
// validated the request first; an invalid correlation id yields a nil pointer.
func (r *EnqueueMessageRequest) ToInput() usecase.EnqueueInput {
	input := usecase.EnqueueInput{
		To:           r.To,
		Subject:      r.Subject,
		Body:         r.Body,
		IsHTML:       r.IsHTML,
		Priority:     domain.Priority(r.Priority),
		MaxRetries:   r.MaxRetries,
		ScheduledFor: r.ScheduledFor,
	}

	if r.CorrelationID != nil {
		if id, err := uuid.Parse(*r.CorrelationID); err == nil {
			input.CorrelationID = &id
		}
	}

	return input
}

// validUUIDPointer validates an optional UUID string field.
func validUUIDPointer(value interface{}) error {
	s, ok := value.(*string)
	if !ok || s == nil {
		return nil
	}
	if _, err := uuid.Parse(*s); err != nil {
		return validation.NewError("validation_uuid_format", "must be a valid UUID")
	}
	return nil
}
