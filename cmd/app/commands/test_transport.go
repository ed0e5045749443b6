package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/mailroom/internal/app"
	"github.com/allisson/mailroom/internal/config"
)

// RunTestTransport probes SMTP connectivity without sending a message.
// Connects to the configured server, performs the handshake (including
// STARTTLS and AUTH when configured), and issues a NOOP.
func RunTestTransport(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("testing transport",
		slog.String("host", cfg.SMTPHost),
		slog.Int("port", cfg.SMTPPort),
	)

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get transport from container
	transport, err := container.Transport()
	if err != nil {
		return fmt.Errorf("failed to initialize transport: %w", err)
	}

	if err := transport.Ping(ctx); err != nil {
		return fmt.Errorf("transport probe failed: %w", err)
	}

	fmt.Println("Transport OK")
	return nil
}
