// Package http provides the HTTP server and request routing for the delivery queue API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	mailerHTTP "github.com/allisson/mailroom/internal/mailer/http"
	"github.com/allisson/mailroom/internal/metrics"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host                    string
	Port                    int
	GinMode                 string
	CORSEnabled             bool
	CORSAllowOrigins        string
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
	MetricsEnabled          bool
	MetricsNamespace        string
}

// Server represents the HTTP API server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(
	config ServerConfig,
	logger *slog.Logger,
	messageHandler *mailerHTTP.MessageHandler,
	queueHandler *mailerHTTP.QueueHandler,
	meterProvider metric.MeterProvider,
) *Server {
	gin.SetMode(config.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if config.MetricsEnabled && meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, config.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(config.CORSEnabled, config.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// Health and readiness endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := router.Group("/v1")

	// Enqueue is the only producer-facing write path, so it carries the rate limit.
	enqueue := v1.Group("/messages")
	if config.RateLimitEnabled {
		enqueue.Use(RateLimitMiddleware(
			config.RateLimitRequestsPerSec,
			config.RateLimitBurst,
			logger,
		))
	}
	enqueue.POST("", messageHandler.EnqueueHandler)

	v1.GET("/messages/:id", messageHandler.GetHandler)
	v1.GET("/messages/:id/attempts", messageHandler.ListAttemptsHandler)
	v1.DELETE("/correlations/:id", messageHandler.DetachCorrelationHandler)

	v1.GET("/queue/stats", queueHandler.StatsHandler)
	v1.POST("/queue/process", queueHandler.ProcessHandler)
	v1.GET("/queue/jobs/:id", queueHandler.GetJobHandler)
	v1.GET("/queue/transport", queueHandler.TestTransportHandler)

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
