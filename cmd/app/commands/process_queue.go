package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/mailroom/internal/app"
	"github.com/allisson/mailroom/internal/config"
)

// RunProcessQueue runs one dispatch cycle over eligible messages and exits.
// Useful for cron-style deployments that prefer external scheduling over the
// long-running worker.
//
// Requirements: Database must be migrated and accessible.
func RunProcessQueue(ctx context.Context, batchSize int, format string) error {
	if batchSize < 0 {
		return fmt.Errorf("batch-size must be a positive number, got: %d", batchSize)
	}

	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("processing queue", slog.Int("batch_size", batchSize))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get queue use case from container
	queueUseCase, err := container.QueueUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize queue use case: %w", err)
	}

	processed, err := queueUseCase.ProcessQueue(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to process queue: %w", err)
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(map[string]int{"processed": processed})
	} else {
		fmt.Printf("Processed %d message(s)\n", processed)
	}

	logger.Info("queue cycle completed", slog.Int("processed", processed))
	return nil
}
