// Package domain defines the core mail queue domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus represents the delivery state of a queued message.
type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusRetry   MessageStatus = "retry"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusFailed  MessageStatus = "failed"
)

// Priority orders messages within the queue. Lower values are dispatched first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

// IsValid reports whether the priority is one of the defined lanes.
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityNormal || p == PriorityLow
}

// Message represents one outbound email awaiting or having completed delivery.
//
// State machine: pending -> {sent, retry, failed}, retry -> {sent, retry, failed}.
// sent and failed are terminal. NextRetryAt is set exactly while status is retry,
// SentAt exactly when status is sent, and RetryCount reaches MaxRetries exactly
// when the message transitions to failed.
type Message struct {
	ID               uuid.UUID
	To               string
	Subject          string
	Body             string
	IsHTML           bool
	Status           MessageStatus
	Priority         Priority
	RetryCount       int
	MaxRetries       int
	CreatedAt        time.Time
	ScheduledFor     *time.Time
	SentAt           *time.Time
	NextRetryAt      *time.Time
	ErrorMessage     *string
	LastErrorDetails *string
	// CorrelationID optionally references the originating business entity
	// (e.g., a form submission). Deleting that entity detaches the reference
	// without removing the message.
	CorrelationID *uuid.UUID
}

// IsTerminal reports whether the message reached a final state.
func (m *Message) IsTerminal() bool {
	return m.Status == MessageStatusSent || m.Status == MessageStatusFailed
}

// MarkSent transitions the message to the sent terminal state.
func (m *Message) MarkSent(now time.Time) {
	m.Status = MessageStatusSent
	m.SentAt = &now
	m.NextRetryAt = nil
	m.ErrorMessage = nil
	m.LastErrorDetails = nil
}
