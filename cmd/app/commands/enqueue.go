package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/allisson/mailroom/internal/app"
	"github.com/allisson/mailroom/internal/config"
	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/mailer/usecase"
)

// EnqueueOptions holds the parameters for the enqueue command.
type EnqueueOptions struct {
	To           string
	Subject      string
	Body         string
	IsHTML       bool
	Priority     int
	ScheduledFor string
	Format       string
}

// RunEnqueue persists a new pending message in the delivery queue.
// Delivery happens asynchronously via the worker; this command never sends.
//
// Requirements: Database must be migrated and accessible.
func RunEnqueue(ctx context.Context, opts EnqueueOptions) error {
	priority, err := parsePriority(opts.Priority)
	if err != nil {
		return err
	}

	var scheduledFor *time.Time
	if opts.ScheduledFor != "" {
		parsed, err := time.Parse(time.RFC3339, opts.ScheduledFor)
		if err != nil {
			return fmt.Errorf("invalid scheduled-for value: %w", err)
		}
		scheduledFor = &parsed
	}

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

	msg, err := queueUseCase.Enqueue(ctx, usecase.EnqueueInput{
		To:           opts.To,
		Subject:      opts.Subject,
		Body:         opts.Body,
		IsHTML:       opts.IsHTML,
		Priority:     priority,
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	logger.Info("message enqueued",
		slog.String("message_id", msg.ID.String()),
		slog.Int("priority", int(msg.Priority)),
	)

	if opts.Format == "json" {
		outputEnqueueJSON(msg)
	} else {
		outputEnqueueText(msg)
	}

	return nil
}

// outputEnqueueText prints the enqueued message in human-readable format.
func outputEnqueueText(msg *domain.Message) {
	fmt.Println("Message enqueued")
	fmt.Printf("  ID:       %s\n", msg.ID)
	fmt.Printf("  To:       %s\n", msg.To)
	fmt.Printf("  Subject:  %s\n", msg.Subject)
	fmt.Printf("  Priority: %d\n", msg.Priority)
	if msg.ScheduledFor != nil {
		fmt.Printf("  Deferred: %s\n", msg.ScheduledFor.Format(time.RFC3339))
	}
}

// outputEnqueueJSON prints the enqueued message in JSON format.
func outputEnqueueJSON(msg *domain.Message) {
	output := map[string]interface{}{
		"id":       msg.ID.String(),
		"to":       msg.To,
		"subject":  msg.Subject,
		"priority": int(msg.Priority),
		"status":   string(msg.Status),
	}
	if msg.ScheduledFor != nil {
		output["scheduled_for"] = msg.ScheduledFor.Format(time.RFC3339)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}
