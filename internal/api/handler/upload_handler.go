package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/catalog-imaging/internal/api/dto"
	"github.com/cuongbtq/catalog-imaging/internal/ingest"
)

// Upload handles POST /api/upload.
// Accepts a multipart CSV under the "file" field, validates it and returns
// 202 with one task id per row.
func (h *Handler) Upload(c *gin.Context) {
	// Cap the whole request body before multipart parsing touches it.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// Oversized files violate the upload format contract and get the
		// same 400 treatment as any other malformed upload.
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("file exceeds the %d byte limit", h.maxUploadBytes),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part in the request"})
		return
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV files are allowed"})
		return
	}

	// Spool the upload to disk so a slow validation pass never holds the
	// multipart stream open.
	tmpPath := filepath.Join(h.uploadDir, uuid.New().String()+".csv")
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		h.logger.Error("Failed to save uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
		return
	}
	defer os.Remove(tmpPath)

	f, err := os.Open(tmpPath)
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	taskIDs, err := h.ingestor.IngestCSV(c.Request.Context(), f)
	if err != nil {
		var vErr *ingest.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		h.logger.Error("CSV ingestion failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process CSV file"})
		return
	}

	h.logger.Info("Upload accepted",
		slog.String("filename", fileHeader.Filename),
		slog.Int("task_count", len(taskIDs)),
	)

	c.JSON(http.StatusAccepted, dto.UploadResponse{TaskIDs: taskIDs})
}
