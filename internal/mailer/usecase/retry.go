package usecase

import (
	"time"

	"github.com/allisson/mailroom/internal/mailer/domain"
)

// RetryPolicy decides the next state of a message after a failed attempt.
// It is a pure function of the message retry counters and the clock.
type RetryPolicy struct {
	// BaseDelay is the backoff base. With the default 5 minutes the delays
	// after the 1st, 2nd and 3rd failure are 10m, 20m and 40m.
	BaseDelay time.Duration
}

// Apply increments the retry count and either schedules the next attempt or
// marks the message terminally failed once the retry budget is exhausted.
func (p RetryPolicy) Apply(msg *domain.Message, now time.Time) {
	msg.RetryCount++

	if msg.RetryCount >= msg.MaxRetries {
		msg.Status = domain.MessageStatusFailed
		msg.NextRetryAt = nil
		return
	}

	next := now.Add(p.Backoff(msg.RetryCount))
	msg.Status = domain.MessageStatusRetry
	msg.NextRetryAt = &next
}

// Backoff returns base * 2^n for the post-increment retry count n.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	return p.BaseDelay * time.Duration(1<<retryCount)
}
