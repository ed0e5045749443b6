package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("mailroom")
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.MeterProvider())

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Handler(t *testing.T) {
	provider, err := NewProvider("mailroom")
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	// Record something so the exposition output is non-trivial
	bm, err := NewBusinessMetrics(provider.MeterProvider(), "mailroom")
	require.NoError(t, err)
	bm.RecordOperation(context.Background(), "mailer", "message_enqueue", "success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mailroom_operations_total")
}

func TestProvider_ShutdownIsIdempotentOnNilMeterProvider(t *testing.T) {
	provider := &Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}
