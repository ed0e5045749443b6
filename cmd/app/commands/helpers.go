// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/mailroom/internal/app"
	"github.com/allisson/mailroom/internal/mailer/domain"
)

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parsePriority converts the priority flag to the domain type.
// Zero means "use the configured default" and is passed through.
func parsePriority(priority int) (domain.Priority, error) {
	if priority == 0 {
		return 0, nil
	}

	p := domain.Priority(priority)
	if !p.IsValid() {
		return 0, fmt.Errorf("invalid priority: %d (valid options: 1=high, 2=normal, 3=low)", priority)
	}
	return p, nil
}
