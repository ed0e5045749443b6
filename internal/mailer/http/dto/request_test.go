package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/mailroom/internal/mailer/domain"
)

func validRequest() EnqueueMessageRequest {
	return EnqueueMessageRequest{
		To:      "user@example.com",
		Subject: "Your submission was received",
		Body:    "Thanks!",
	}
}

func TestEnqueueMessageRequest_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		req := validRequest()
		assert.NoError(t, req.Validate())
	})

	t.Run("ValidWithAllFields", func(t *testing.T) {
		req := validRequest()
		req.IsHTML = true
		req.Priority = 1
		req.MaxRetries = 5
		scheduledFor := time.Now().Add(time.Hour)
		req.ScheduledFor = &scheduledFor
		correlationID := uuid.Must(uuid.NewV7()).String()
		req.CorrelationID = &correlationID

		assert.NoError(t, req.Validate())
	})

	t.Run("MissingTo", func(t *testing.T) {
		req := validRequest()
		req.To = ""
		assert.Error(t, req.Validate())
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		req := validRequest()
		req.To = "not-an-email"
		assert.Error(t, req.Validate())
	})

	t.Run("HeaderInjectionInSubject", func(t *testing.T) {
		req := validRequest()
		req.Subject = "hello\r\nBcc: attacker@example.com"
		assert.Error(t, req.Validate())
	})

	t.Run("BlankSubject", func(t *testing.T) {
		req := validRequest()
		req.Subject = "   "
		assert.Error(t, req.Validate())
	})

	t.Run("MissingBody", func(t *testing.T) {
		req := validRequest()
		req.Body = ""
		assert.Error(t, req.Validate())
	})

	t.Run("PriorityOutOfRange", func(t *testing.T) {
		req := validRequest()
		req.Priority = 4
		assert.Error(t, req.Validate())
	})

	t.Run("NegativeMaxRetries", func(t *testing.T) {
		req := validRequest()
		req.MaxRetries = -1
		assert.Error(t, req.Validate())
	})

	t.Run("InvalidCorrelationID", func(t *testing.T) {
		req := validRequest()
		bad := "not-a-uuid"
		req.CorrelationID = &bad
		assert.Error(t, req.Validate())
	})
}

func TestEnqueueMessageRequest_ToInput(t *testing.T) {
	scheduledFor := time.Now().Add(time.Hour)
	correlationID := uuid.Must(uuid.NewV7())
	correlationStr := correlationID.String()

	req := EnqueueMessageRequest{
		To:            "user@example.com",
		Subject:       "s",
		Body:          "b",
		IsHTML:        true,
		Priority:      1,
		MaxRetries:    5,
		ScheduledFor:  &scheduledFor,
		CorrelationID: &correlationStr,
	}

	input := req.ToInput()

	assert.Equal(t, "user@example.com", input.To)
	assert.True(t, input.IsHTML)
	assert.Equal(t, domain.PriorityHigh, input.Priority)
	assert.Equal(t, 5, input.MaxRetries)
	require.NotNil(t, input.ScheduledFor)
	assert.Equal(t, scheduledFor, *input.ScheduledFor)
	require.NotNil(t, input.CorrelationID)
	assert.Equal(t, correlationID, *input.CorrelationID)
}

func TestEnqueueMessageRequest_ToInput_Defaults(t *testing.T) {
	req := validRequest()
	input := req.ToInput()

	assert.Zero(t, input.Priority)
	assert.Zero(t, input.MaxRetries)
	assert.Nil(t, input.ScheduledFor)
	assert.Nil(t, input.CorrelationID)
}
