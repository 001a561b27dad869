package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// spawnWorkerPool starts the processing goroutines.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop pulls jobs off jobsChan and runs them to a terminal state.
// A nil Process result acks the delivery; processing errors decide requeue
// via shouldRequeue.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started", slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping", slog.String("worker_name", workerName))
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName))
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				return
			}

			jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
			err := w.processor.Process(jobCtx, msg.JobID)
			cancel()

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("No RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("job_id", msg.JobID),
				)
				continue
			}

			if err != nil {
				requeue := shouldRequeue(err)
				w.logger.Error("Job processing failed",
					slog.String("worker_name", workerName),
					slog.String("job_id", msg.JobID),
					slog.String("error", err.Error()),
					slog.Bool("requeue", requeue),
				)
				if nackErr := channel.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("job_id", msg.JobID),
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("job_id", msg.JobID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}

// shouldRequeue decides whether a failed delivery goes back on the queue.
// Jobs already claimed were picked up by another delivery; redelivering
// them again accomplishes nothing. Everything else (database outages,
// timeouts before a terminal state was recorded) is retried.
func shouldRequeue(err error) bool {
	if errors.Is(err, domain.ErrJobAlreadyClaimed) {
		return false
	}
	if errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}
	return true
}
