package domain

import "time"

// QueueStats is a read-only rollup over the queue and its audit trail,
// used for operational visibility.
type QueueStats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Sent     int64 `json:"sent"`
	Failed   int64 `json:"failed"`
	// OldestPending is the creation time of the oldest message still pending.
	OldestPending *time.Time `json:"oldest_pending"`
	// LastAttemptAt is the most recent delivery attempt across the whole store.
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}
