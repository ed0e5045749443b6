package http

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "Empty",
			input: "",
			want:  nil,
		},
		{
			name:  "Single",
			input: "https://app.example.com",
			want:  []string{"https://app.example.com"},
		},
		{
			name:  "Multiple",
			input: "https://app.example.com,https://admin.example.com",
			want:  []string{"https://app.example.com", "https://admin.example.com"},
		},
		{
			name:  "TrimsWhitespace",
			input: " https://app.example.com , https://admin.example.com ",
			want:  []string{"https://app.example.com", "https://admin.example.com"},
		},
		{
			name:  "SkipsEmptyParts",
			input: "https://app.example.com,,  ,https://admin.example.com",
			want:  []string{"https://app.example.com", "https://admin.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOrigins(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateCORSMiddleware(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		middleware := createCORSMiddleware(false, "https://app.example.com", testLogger())
		assert.Nil(t, middleware)
	})

	t.Run("EnabledWithoutOrigins", func(t *testing.T) {
		middleware := createCORSMiddleware(true, "", testLogger())
		assert.Nil(t, middleware)
	})

	t.Run("EnabledWithOnlyWhitespaceOrigins", func(t *testing.T) {
		middleware := createCORSMiddleware(true, "  ,  ", testLogger())
		assert.Nil(t, middleware)
	})

	t.Run("EnabledWithOrigins", func(t *testing.T) {
		middleware := createCORSMiddleware(true, "https://app.example.com", testLogger())
		assert.NotNil(t, middleware)
	})
}
