// Package storage implements the worker's database operations: claiming
// jobs, recording terminal states, and persisting image rows.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// Storage handles all database operations for the worker.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a Storage.
func New(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

// ClaimJob moves a job from PENDING to PROGRESS with an optimistic update
// and returns its payload. A job no longer PENDING returns
// ErrJobAlreadyClaimed so redeliveries are safe to drop.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE job_id = $2 AND status = $3
		RETURNING job_id, product_id, input_urls
	`

	var (
		job      domain.Job
		urlsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusProgress, jobID, domain.JobStatusPending).
		Scan(&job.JobID, &job.ProductID, &urlsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	if err := json.Unmarshal(urlsJSON, &job.InputURLs); err != nil {
		return nil, fmt.Errorf("failed to decode input urls for job %s: %w", jobID, err)
	}

	job.Status = domain.JobStatusProgress

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.Int64("product_id", job.ProductID),
		slog.Int("url_count", len(job.InputURLs)),
	)

	return &job, nil
}

// GetProduct resolves the product a job belongs to.
func (s *Storage) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product,
		`SELECT id, serial_number, product_name FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// InsertImages writes one image row per processed URL in a single
// transaction, the batch commit after the processing loop.
func (s *Storage) InsertImages(ctx context.Context, productID int64, images []domain.ProcessedImage) error {
	if len(images) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, img := range images {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO images (product_id, input_image_url, output_image_url)
			 VALUES ($1, $2, $3)`,
			productID, img.InputURL, img.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to insert image row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit image rows: %w", err)
	}

	s.logger.Info("Image rows persisted",
		slog.Int64("product_id", productID),
		slog.Int("count", len(images)),
	)

	return nil
}

// CompleteJob records the terminal SUCCESS state with its result payload.
// Terminal rows are write-once: the guard on PROGRESS keeps a late retry
// from overwriting them.
func (s *Storage) CompleteJob(ctx context.Context, jobID string, result *domain.JobResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = $1, result = $2, completed_at = NOW(), updated_at = NOW()
		WHERE job_id = $3 AND status = $4
	`
	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusSuccess, resultJSON, jobID, domain.JobStatusProgress); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

// FailJob records the terminal FAILURE state with an error message.
func (s *Storage) FailJob(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE job_id = $3 AND status = $4
	`
	if _, err := s.db.ExecContext(ctx, query, domain.JobStatusFailure, errorMessage, jobID, domain.JobStatusProgress); err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	return nil
}
