package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/allisson/mailroom/internal/app"
	"github.com/allisson/mailroom/internal/config"
	"github.com/allisson/mailroom/internal/mailer/domain"
)

// RunQueueStats prints the queue rollup: per-status counts, the oldest pending
// creation time, and the most recent delivery attempt time.
//
// Requirements: Database must be migrated and accessible.
func RunQueueStats(ctx context.Context, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get queue use case from container
	queueUseCase, err := container.QueueUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize queue use case: %w", err)
	}

	stats, err := queueUseCase.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue stats: %w", err)
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	outputStatsText(stats)
	return nil
}

// outputStatsText prints queue statistics in human-readable format.
func outputStatsText(stats *domain.QueueStats) {
	fmt.Println("Queue statistics")
	fmt.Printf("  Pending:  %d\n", stats.Pending)
	fmt.Printf("  Retrying: %d\n", stats.Retrying)
	fmt.Printf("  Sent:     %d\n", stats.Sent)
	fmt.Printf("  Failed:   %d\n", stats.Failed)
	if stats.OldestPending != nil {
		fmt.Printf("  Oldest pending: %s\n", stats.OldestPending.Format(time.RFC3339))
	}
	if stats.LastAttemptAt != nil {
		fmt.Printf("  Last attempt:   %s\n", stats.LastAttemptAt.Format(time.RFC3339))
	}
}
