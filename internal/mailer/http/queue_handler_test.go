package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/mailroom/internal/errors"
	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/mailer/usecase"
	"github.com/allisson/mailroom/internal/progress"
)

func setupQueueRouter(useCase usecase.UseCase, jobs *progress.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewQueueHandler(useCase, jobs, 50, testLogger())

	router := gin.New()
	router.GET("/v1/queue/stats", handler.StatsHandler)
	router.POST("/v1/queue/process", handler.ProcessHandler)
	router.GET("/v1/queue/jobs/:id", handler.GetJobHandler)
	router.GET("/v1/queue/transport", handler.TestTransportHandler)
	return router
}

func TestQueueHandler_StatsHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		stats := &domain.QueueStats{Pending: 3, Retrying: 1, Sent: 10, Failed: 2}
		useCase.On("Stats", mock.Anything).Return(stats, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp domain.QueueStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.Pending)
		assert.Equal(t, int64(10), resp.Sent)
	})

	t.Run("Error", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		useCase.On("Stats", mock.Anything).Return(nil, assert.AnError)

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestQueueHandler_ProcessHandler(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		useCase := new(MockUseCase)
		jobs := progress.NewStore(time.Hour)
		router := setupQueueRouter(useCase, jobs)

		done := make(chan struct{})
		useCase.On("ProcessQueue", mock.Anything, 50).
			Run(func(args mock.Arguments) { close(done) }).
			Return(4, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/queue/process", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		jobID, err := uuid.Parse(resp["job_id"])
		require.NoError(t, err)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("drain never ran")
		}

		require.Eventually(t, func() bool {
			job, err := jobs.Get(jobID)
			return err == nil && job.Status == progress.JobStatusCompleted
		}, time.Second, 10*time.Millisecond)

		job, err := jobs.Get(jobID)
		require.NoError(t, err)
		assert.Equal(t, 4, job.Processed)
	})

	t.Run("DrainFailureIsRecordedOnJob", func(t *testing.T) {
		useCase := new(MockUseCase)
		jobs := progress.NewStore(time.Hour)
		router := setupQueueRouter(useCase, jobs)

		useCase.On("ProcessQueue", mock.Anything, 50).Return(0, assert.AnError)

		req := httptest.NewRequest(http.MethodPost, "/v1/queue/process", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		jobID := uuid.MustParse(resp["job_id"])

		require.Eventually(t, func() bool {
			job, err := jobs.Get(jobID)
			return err == nil && job.Status == progress.JobStatusFailed
		}, time.Second, 10*time.Millisecond)

		job, err := jobs.Get(jobID)
		require.NoError(t, err)
		assert.Equal(t, assert.AnError.Error(), job.Error)
	})
}

func TestQueueHandler_GetJobHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := new(MockUseCase)
		jobs := progress.NewStore(time.Hour)
		router := setupQueueRouter(useCase, jobs)

		id := jobs.Begin()
		jobs.Complete(id, 9)

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/jobs/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var job progress.Job
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		assert.Equal(t, progress.JobStatusCompleted, job.Status)
		assert.Equal(t, 9, job.Processed)
	})

	t.Run("InvalidID", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/jobs/xyz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		id := uuid.Must(uuid.NewV7())
		req := httptest.NewRequest(http.MethodGet, "/v1/queue/jobs/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestQueueHandler_TestTransportHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		useCase.On("TestTransport", mock.Anything).Return(nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/transport", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Unavailable", func(t *testing.T) {
		useCase := new(MockUseCase)
		router := setupQueueRouter(useCase, progress.NewStore(time.Hour))

		useCase.On("TestTransport", mock.Anything).
			Return(apperrors.Wrap(apperrors.ErrUnavailable, "connection refused"))

		req := httptest.NewRequest(http.MethodGet, "/v1/queue/transport", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
