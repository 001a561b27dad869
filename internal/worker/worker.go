// Package worker consumes image jobs from RabbitMQ and runs them through the
// fetch-resize-persist pipeline on a bounded goroutine pool.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
	"github.com/cuongbtq/catalog-imaging/shared/rabbitmq"
)

// Config holds worker configuration.
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Processor     *Processor
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	QueueName     string
	ImageDir      string
	CSVDir        string
}

// Worker consumes job messages and dispatches them to a pool of processing
// goroutines.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	processor     *Processor
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	queueName     string
	imageDir      string
	csvDir        string
	workerID      string
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a worker instance with a unique worker id.
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		processor:     cfg.Processor,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		queueName:     cfg.QueueName,
		imageDir:      cfg.ImageDir,
		csvDir:        cfg.CSVDir,
		workerID:      fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		jobsChan:      make(chan *domain.JobMessage, cfg.Concurrency*2),
		stopChan:      make(chan struct{}),
	}
}

// Start prepares the output directories, begins consuming and blocks until
// ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	for _, dir := range []string{w.imageDir, w.csvDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker pool, waiting for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
