// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/mailroom/internal/config"
	"github.com/allisson/mailroom/internal/database"
	"github.com/allisson/mailroom/internal/http"
	"github.com/allisson/mailroom/internal/mailer/domain"
	mailerHTTP "github.com/allisson/mailroom/internal/mailer/http"
	mailerRepository "github.com/allisson/mailroom/internal/mailer/repository"
	mailerTransport "github.com/allisson/mailroom/internal/mailer/transport"
	mailerUsecase "github.com/allisson/mailroom/internal/mailer/usecase"
	"github.com/allisson/mailroom/internal/metrics"
	"github.com/allisson/mailroom/internal/progress"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Repositories
	messageRepo mailerUsecase.MessageRepository
	attemptRepo mailerUsecase.DeliveryAttemptRepository

	// Transport
	transport mailerUsecase.Transport

	// Use Cases
	queueUseCase mailerUsecase.UseCase

	// Job tracking
	progressStore *progress.Store

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	txManagerInit       sync.Once
	messageRepoInit     sync.Once
	attemptRepoInit     sync.Once
	transportInit       sync.Once
	queueUseCaseInit    sync.Once
	progressStoreInit   sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider instance.
// Returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
// Falls back to a no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}

		businessMetrics, err := metrics.NewBusinessMetrics(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
		)
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		txManager, err := c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = txManager
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MessageRepository returns the queue message repository instance.
func (c *Container) MessageRepository() (mailerUsecase.MessageRepository, error) {
	c.messageRepoInit.Do(func() {
		repo, err := c.initMessageRepository()
		if err != nil {
			c.initErrors["messageRepo"] = err
			return
		}
		c.messageRepo = repo
	})
	if storedErr, exists := c.initErrors["messageRepo"]; exists {
		return nil, storedErr
	}
	return c.messageRepo, nil
}

// DeliveryAttemptRepository returns the delivery attempt repository instance.
func (c *Container) DeliveryAttemptRepository() (mailerUsecase.DeliveryAttemptRepository, error) {
	c.attemptRepoInit.Do(func() {
		repo, err := c.initDeliveryAttemptRepository()
		if err != nil {
			c.initErrors["attemptRepo"] = err
			return
		}
		c.attemptRepo = repo
	})
	if storedErr, exists := c.initErrors["attemptRepo"]; exists {
		return nil, storedErr
	}
	return c.attemptRepo, nil
}

// Transport returns the SMTP transport instance.
func (c *Container) Transport() (mailerUsecase.Transport, error) {
	c.transportInit.Do(func() {
		c.transport = mailerTransport.NewSMTPTransport(mailerTransport.Config{
			Host:      c.config.SMTPHost,
			Port:      c.config.SMTPPort,
			Username:  c.config.SMTPUsername,
			Password:  c.config.SMTPPassword,
			From:      c.config.SMTPFrom,
			HelloName: c.config.SMTPHelloName,
			StartTLS:  c.config.SMTPStartTLS,
			Timeout:   c.config.SMTPTimeout,
		})
	})
	return c.transport, nil
}

// QueueUseCase returns the queue use case instance.
func (c *Container) QueueUseCase() (mailerUsecase.UseCase, error) {
	c.queueUseCaseInit.Do(func() {
		useCase, err := c.initQueueUseCase()
		if err != nil {
			c.initErrors["queueUseCase"] = err
			return
		}
		c.queueUseCase = useCase
	})
	if storedErr, exists := c.initErrors["queueUseCase"]; exists {
		return nil, storedErr
	}
	return c.queueUseCase, nil
}

// ProgressStore returns the in-memory drain job tracker.
func (c *Container) ProgressStore() *progress.Store {
	c.progressStoreInit.Do(func() {
		c.progressStore = progress.NewStore(c.config.JobTTL)
	})
	return c.progressStore
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance.
// Returns nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}

		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMessageRepository creates the queue message repository instance.
func (c *Container) initMessageRepository() (mailerUsecase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for message repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return mailerRepository.NewMySQLMessageRepository(db), nil
	case "postgres":
		return mailerRepository.NewPostgreSQLMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDeliveryAttemptRepository creates the delivery attempt repository instance.
func (c *Container) initDeliveryAttemptRepository() (mailerUsecase.DeliveryAttemptRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for delivery attempt repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return mailerRepository.NewMySQLDeliveryAttemptRepository(db), nil
	case "postgres":
		return mailerRepository.NewPostgreSQLDeliveryAttemptRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initQueueUseCase creates the queue use case with all its dependencies.
// The use case is wrapped with metrics instrumentation when metrics are enabled.
func (c *Container) initQueueUseCase() (mailerUsecase.UseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for queue use case: %w", err)
	}

	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for queue use case: %w", err)
	}

	attemptRepo, err := c.DeliveryAttemptRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery attempt repository for queue use case: %w", err)
	}

	transport, err := c.Transport()
	if err != nil {
		return nil, fmt.Errorf("failed to get transport for queue use case: %w", err)
	}

	useCaseConfig := mailerUsecase.Config{
		Interval:        c.config.QueueInterval,
		BatchSize:       c.config.QueueBatchSize,
		MaxRetries:      c.config.QueueMaxRetries,
		RetryBaseDelay:  c.config.QueueRetryBaseDelay,
		DefaultPriority: domainPriority(c.config.QueueDefaultPriority),
	}

	useCase := mailerUsecase.NewQueueUseCase(
		useCaseConfig,
		txManager,
		messageRepo,
		attemptRepo,
		transport,
		logger,
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for queue use case: %w", err)
	}

	return mailerUsecase.NewQueueUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for http server: %w", err)
	}

	var meterProvider *metrics.Provider
	if c.config.MetricsEnabled {
		meterProvider, err = c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
	}

	messageHandler := mailerHTTP.NewMessageHandler(queueUseCase, logger)
	queueHandler := mailerHTTP.NewQueueHandler(
		queueUseCase,
		c.ProgressStore(),
		c.config.QueueBatchSize,
		logger,
	)

	serverConfig := http.ServerConfig{
		Host:                    c.config.ServerHost,
		Port:                    c.config.ServerPort,
		GinMode:                 c.config.GetGinMode(),
		CORSEnabled:             c.config.CORSEnabled,
		CORSAllowOrigins:        c.config.CORSAllowOrigins,
		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,
		MetricsEnabled:          c.config.MetricsEnabled,
		MetricsNamespace:        c.config.MetricsNamespace,
	}

	if meterProvider != nil {
		return http.NewServer(
			serverConfig,
			logger,
			messageHandler,
			queueHandler,
			meterProvider.MeterProvider(),
		), nil
	}

	return http.NewServer(serverConfig, logger, messageHandler, queueHandler, nil), nil
}

// domainPriority converts the configured default priority into the domain
// type, falling back to normal when the value is out of range.
func domainPriority(value int) domain.Priority {
	priority := domain.Priority(value)
	if !priority.IsValid() {
		return domain.PriorityNormal
	}
	return priority
}
