package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/catalog-imaging/internal/api/dto"
	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// Status handles GET /api/status/:task_id.
// Task ids never expire into errors: an id with no job row answers 200 with
// status UNKNOWN so pollers can't tell a bad id from a purged one.
func (h *Handler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	rec, err := h.queue.GetResult(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusOK, dto.StatusResponse{
				TaskID: taskID,
				Status: string(domain.JobStatusUnknown),
			})
			return
		}
		h.logger.Error("Failed to get job status",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task status"})
		return
	}

	resp := dto.StatusResponse{
		TaskID: taskID,
		Status: string(rec.Status),
	}

	switch rec.Status {
	case domain.JobStatusSuccess:
		resp.Result = rec.Result
	case domain.JobStatusFailure:
		// The error string takes the result slot, mirroring the payload
		// shape pollers expect.
		errJSON, err := json.Marshal(rec.ErrorMessage)
		if err == nil {
			resp.Result = errJSON
		}
	}

	c.JSON(http.StatusOK, resp)
}
