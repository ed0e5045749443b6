package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/httputil"
	"github.com/allisson/mailroom/internal/mailer/http/dto"
	"github.com/allisson/mailroom/internal/mailer/usecase"
	"github.com/allisson/mailroom/internal/progress"
)

// QueueHandler handles HTTP requests for queue-level operations: statistics,
// on-demand drains, and transport probing.
type QueueHandler struct {
	queueUseCase usecase.UseCase
	jobs         *progress.Store
	batchSize    int
	logger       *slog.Logger
}

// NewQueueHandler creates a new queue handler with required dependencies.
// batchSize bounds how many messages one on-demand drain processes.
func NewQueueHandler(
	queueUseCase usecase.UseCase,
	jobs *progress.Store,
	batchSize int,
	logger *slog.Logger,
) *QueueHandler {
	return &QueueHandler{
		queueUseCase: queueUseCase,
		jobs:         jobs,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// StatsHandler returns the queue rollup: per-status counts, the oldest
// pending creation time, and the most recent attempt time.
// GET /v1/queue/stats
func (h *QueueHandler) StatsHandler(c *gin.Context) {
	stats, err := h.queueUseCase.Stats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ProcessHandler starts an on-demand drain cycle in the background and
// returns a job id the caller can poll.
// POST /v1/queue/process
func (h *QueueHandler) ProcessHandler(c *gin.Context) {
	jobID := h.jobs.Begin()

	// The drain outlives the request, so it runs on a detached context.
	go func() {
		processed, err := h.queueUseCase.ProcessQueue(context.Background(), h.batchSize)
		if err != nil {
			h.logger.Error("on-demand drain failed",
				slog.String("job_id", jobID.String()),
				slog.Any("error", err),
			)
			h.jobs.Fail(jobID, err)
			return
		}
		h.jobs.Complete(jobID, processed)
	}()

	c.JSON(http.StatusAccepted, dto.ProcessQueueResponse{JobID: jobID.String()})
}

// GetJobHandler returns the state of an on-demand drain job.
// GET /v1/queue/jobs/:id
func (h *QueueHandler) GetJobHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid job id: %w", err), h.logger)
		return
	}

	job, err := h.jobs.Get(id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, job)
}

// TestTransportHandler probes SMTP connectivity without sending a message.
// GET /v1/queue/transport
func (h *QueueHandler) TestTransportHandler(c *gin.Context) {
	if err := h.queueUseCase.TestTransport(c.Request.Context()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.TransportStatusResponse{Status: "ok"})
}
