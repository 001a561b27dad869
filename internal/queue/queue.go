// Package queue implements the work queue contract: enqueue returns an
// opaque job id, and the result store answers status lookups. Job rows in
// Postgres carry the payload and the result; RabbitMQ only carries the id.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// Publisher delivers a job message to the broker.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Queue enqueues image jobs and reads their results.
type Queue struct {
	db        *sqlx.DB
	publisher Publisher
	logger    *slog.Logger
}

// New creates a Queue.
func New(db *sqlx.DB, publisher Publisher, logger *slog.Logger) *Queue {
	return &Queue{db: db, publisher: publisher, logger: logger}
}

// Enqueue records a PENDING job row and publishes its id. The row is the
// durable source of truth; if the publish fails the row stays PENDING and
// the error is returned to the caller.
func (q *Queue) Enqueue(ctx context.Context, productID int64, urls []string) (string, error) {
	jobID := uuid.New().String()

	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("failed to marshal input urls: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO jobs (job_id, product_id, input_urls, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	if _, err := q.db.ExecContext(ctx, query, jobID, productID, urlsJSON, domain.JobStatusPending, now); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	body, err := json.Marshal(domain.JobMessage{JobID: jobID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job message: %w", err)
	}

	if err := q.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return "", fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	q.logger.Debug("Job enqueued",
		slog.String("job_id", jobID),
		slog.Int64("product_id", productID),
	)

	return jobID, nil
}

// GetResult looks up jobID in the result store. An id with no row returns
// domain.ErrJobNotFound, which the status endpoint reports as UNKNOWN.
func (q *Queue) GetResult(ctx context.Context, jobID string) (*domain.JobStatusRecord, error) {
	// job_id is a uuid column; a malformed id can't exist and would only
	// trigger a cast error.
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrJobNotFound
	}

	query := `
		SELECT job_id, status, COALESCE(result, 'null'::jsonb) AS result,
		       COALESCE(error_message, '') AS error_message
		FROM jobs
		WHERE job_id = $1
	`

	var rec domain.JobStatusRecord
	err := q.db.GetContext(ctx, &rec, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}

	return &rec, nil
}
