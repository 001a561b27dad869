package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
	"github.com/cuongbtq/catalog-imaging/internal/metrics"
)

// Store is the database surface the processor needs.
type Store interface {
	ClaimJob(ctx context.Context, jobID string) (*domain.Job, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	InsertImages(ctx context.Context, productID int64, images []domain.ProcessedImage) error
	CompleteJob(ctx context.Context, jobID string, result *domain.JobResult) error
	FailJob(ctx context.Context, jobID, errorMessage string) error
}

// Processor executes one image job: claim, fetch and resize every URL,
// persist the image rows, write the manifest CSV and record the terminal
// state.
type Processor struct {
	store      Store
	httpClient *http.Client
	imageDir   string
	csvDir     string
	logger     *slog.Logger
}

// NewProcessor creates a Processor. fetchTimeout bounds each image download.
func NewProcessor(store Store, imageDir, csvDir string, fetchTimeout time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		store:      store,
		httpClient: &http.Client{Timeout: fetchTimeout},
		imageDir:   imageDir,
		csvDir:     csvDir,
		logger:     logger,
	}
}

// Process runs the job to a terminal state. A nil return means the message
// can be acked: either the job finished (SUCCESS or FAILURE) or it was
// already claimed by another delivery. A non-nil return means the caller
// should requeue.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.store.ClaimJob(ctx, jobID)
	if err != nil {
		return err
	}

	product, err := p.store.GetProduct(ctx, job.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return p.fail(ctx, jobID, "Product not found")
		}
		return fmt.Errorf("failed to load product for job %s: %w", jobID, err)
	}

	processed := make([]domain.ProcessedImage, 0, len(job.InputURLs))
	var fetchErrors []string
	for _, rawURL := range job.InputURLs {
		outputPath, err := p.processImage(ctx, rawURL)
		if err != nil {
			p.logger.Warn("Image processing failed",
				slog.String("job_id", jobID),
				slog.String("url", rawURL),
				slog.Any("error", err),
			)
			metrics.RecordImage("failed")
			fetchErrors = append(fetchErrors, fmt.Sprintf("%s: %v", rawURL, err))
			continue
		}
		metrics.RecordImage("ok")
		processed = append(processed, domain.ProcessedImage{InputURL: rawURL, OutputPath: outputPath})
	}

	// Per-URL failures never fail the job: a job where every fetch failed
	// still completes with zero outputs and a header-only manifest.
	if err := p.store.InsertImages(ctx, job.ProductID, processed); err != nil {
		return p.fail(ctx, jobID, fmt.Sprintf("failed to persist image rows: %v", err))
	}

	inputURLs := make([]string, len(processed))
	outputPaths := make([]string, len(processed))
	for i, img := range processed {
		inputURLs[i] = img.InputURL
		outputPaths[i] = img.OutputPath
	}

	csvPath, err := writeManifest(p.csvDir, product.SerialNumber, product.ProductName, inputURLs, outputPaths)
	if err != nil {
		return p.fail(ctx, jobID, fmt.Sprintf("failed to write output CSV: %v", err))
	}

	result := &domain.JobResult{
		SerialNumber:    product.SerialNumber,
		ProductName:     product.ProductName,
		InputImageURLs:  job.InputURLs,
		OutputImageURLs: outputPaths,
		OutputCSVPath:   csvPath,
	}
	if err := p.store.CompleteJob(ctx, jobID, result); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}

	metrics.RecordJob(string(domain.JobStatusSuccess))
	p.logger.Info("Job completed",
		slog.String("job_id", jobID),
		slog.Int("images_ok", len(processed)),
		slog.Int("images_failed", len(fetchErrors)),
		slog.String("output_csv", csvPath),
	)

	return nil
}

// fail records a terminal FAILURE and tells the caller to ack.
func (p *Processor) fail(ctx context.Context, jobID, message string) error {
	if err := p.store.FailJob(ctx, jobID, message); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}

	metrics.RecordJob(string(domain.JobStatusFailure))
	p.logger.Warn("Job failed", slog.String("job_id", jobID), slog.String("reason", message))
	return nil
}

// processImage downloads one image, halves its dimensions and saves it as a
// JPEG named by a fresh UUID. Returns the saved file path.
func (p *Processor) processImage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode failed: %w", err)
	}

	// Halve both dimensions, keeping at least one pixel each way.
	bounds := img.Bounds()
	resized := imaging.Resize(img, max(bounds.Dx()/2, 1), max(bounds.Dy()/2, 1), imaging.Lanczos)

	name := strings.ReplaceAll(uuid.New().String(), "-", "") + ".jpg"
	path := filepath.Join(p.imageDir, name)
	if err := imaging.Save(resized, path); err != nil {
		return "", fmt.Errorf("save failed: %w", err)
	}

	return path, nil
}
