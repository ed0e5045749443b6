package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 2*time.Minute, cfg.QueueInterval)
				assert.Equal(t, 10, cfg.QueueBatchSize)
				assert.Equal(t, 3, cfg.QueueMaxRetries)
				assert.Equal(t, 5*time.Minute, cfg.QueueRetryBaseDelay)
				assert.Equal(t, 2, cfg.QueueDefaultPriority)
				assert.Equal(t, 587, cfg.SMTPPort)
				assert.True(t, cfg.SMTPStartTLS)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":            "mysql",
				"DB_CONNECTION_STRING": "user:password@tcp(localhost:3306)/mailroom?parseTime=true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/mailroom?parseTime=true", cfg.DBConnectionString)
			},
		},
		{
			name: "load custom queue configuration",
			envVars: map[string]string{
				"QUEUE_INTERVAL_MINUTES":         "5",
				"QUEUE_BATCH_SIZE":               "50",
				"QUEUE_MAX_RETRIES":              "5",
				"QUEUE_RETRY_BASE_DELAY_MINUTES": "1",
				"QUEUE_DEFAULT_PRIORITY":         "1",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.QueueInterval)
				assert.Equal(t, 50, cfg.QueueBatchSize)
				assert.Equal(t, 5, cfg.QueueMaxRetries)
				assert.Equal(t, 1*time.Minute, cfg.QueueRetryBaseDelay)
				assert.Equal(t, 1, cfg.QueueDefaultPriority)
			},
		},
		{
			name: "load custom smtp configuration",
			envVars: map[string]string{
				"SMTP_HOST":     "mail.example.com",
				"SMTP_PORT":     "25",
				"SMTP_USERNAME": "mailer",
				"SMTP_FROM":     "forms@example.com",
				"SMTP_STARTTLS": "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mail.example.com", cfg.SMTPHost)
				assert.Equal(t, 25, cfg.SMTPPort)
				assert.Equal(t, "mailer", cfg.SMTPUsername)
				assert.Equal(t, "forms@example.com", cfg.SMTPFrom)
				assert.False(t, cfg.SMTPStartTLS)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "unknown"}).GetGinMode())
}
