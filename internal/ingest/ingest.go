// Package ingest turns an uploaded product CSV into enqueued image jobs.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
	"github.com/cuongbtq/catalog-imaging/internal/urlcheck"
)

// Header is the exact, order-sensitive header row an upload must carry.
var Header = []string{"Serial Number", "Product Name", "Input Image Urls"}

// ValidationError marks client input errors so the HTTP layer can answer 400
// instead of 500.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ProductStore is the persistence surface for resolving CSV rows to
// products. FindProduct returns ErrProductNotFound for an absent pair;
// CreateProduct commits immediately, not batched, and returns
// ErrDuplicateSerial when the serial number is taken.
type ProductStore interface {
	FindProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error)
	CreateProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error)
}

// Enqueuer hands one job per CSV row to the work queue and returns its id.
type Enqueuer interface {
	Enqueue(ctx context.Context, productID int64, urls []string) (string, error)
}

// Ingestor validates an uploaded CSV row by row and enqueues one image job
// per product row.
type Ingestor struct {
	store  ProductStore
	queue  Enqueuer
	logger *slog.Logger
}

// New creates an Ingestor.
func New(store ProductStore, queue Enqueuer, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: store, queue: queue, logger: logger}
}

// IngestCSV parses r and returns the ordered job ids, one per data row.
// Any validation failure aborts the request: jobs enqueued for earlier rows
// are not rolled back, but no further rows are processed. A header with zero
// data rows succeeds with an empty id list.
func (ing *Ingestor) IngestCSV(ctx context.Context, r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, validationErrorf("CSV file is empty")
	}
	if err != nil {
		return nil, validationErrorf("error reading CSV file: %v", err)
	}

	if !headerMatches(header) {
		return nil, validationErrorf(
			"CSV format is incorrect. Header row should be [%s]", strings.Join(Header, ", "))
	}

	taskIDs := []string{}
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, validationErrorf("row %d: error reading CSV file: %v", rowNum, err)
		}

		if len(record) != 3 {
			return nil, validationErrorf("CSV format is incorrect. Each row should have 3 columns.")
		}

		serialNumber, productName, rawURLs := record[0], record[1], record[2]
		if serialNumber == "" {
			return nil, validationErrorf("row %d: 'Serial Number' is required", rowNum)
		}
		if productName == "" {
			return nil, validationErrorf("row %d: 'Product Name' is required", rowNum)
		}
		if rawURLs == "" {
			return nil, validationErrorf("row %d: 'Input Image Urls' is required", rowNum)
		}

		urls := splitURLs(rawURLs)
		if invalid := invalidURLs(urls); len(invalid) > 0 {
			return nil, validationErrorf("Invalid image URLs found: %s", strings.Join(invalid, ", "))
		}

		product, err := ing.resolveProduct(ctx, serialNumber, productName)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateSerial) {
				return nil, validationErrorf(
					"row %d: serial number %q already exists with a different product name", rowNum, serialNumber)
			}
			return nil, fmt.Errorf("row %d: failed to resolve product: %w", rowNum, err)
		}

		taskID, err := ing.queue.Enqueue(ctx, product.ID, urls)
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to enqueue job: %w", rowNum, err)
		}

		ing.logger.Info("Enqueued image job",
			slog.String("job_id", taskID),
			slog.Int64("product_id", product.ID),
			slog.String("serial_number", serialNumber),
			slog.Int("url_count", len(urls)),
		)

		taskIDs = append(taskIDs, taskID)
	}

	return taskIDs, nil
}

// resolveProduct returns the product for a (serial number, product name)
// pair, creating it when absent. When the create loses a unique-violation
// race, the pair is looked up once more: an identical pair created by a
// concurrent upload is reused, and only a pair whose serial is taken by a
// different name surfaces ErrDuplicateSerial.
func (ing *Ingestor) resolveProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error) {
	product, err := ing.store.FindProduct(ctx, serialNumber, productName)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, err
	}

	product, err = ing.store.CreateProduct(ctx, serialNumber, productName)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, domain.ErrDuplicateSerial) {
		return nil, err
	}

	product, err = ing.store.FindProduct(ctx, serialNumber, productName)
	if err == nil {
		return product, nil
	}
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, domain.ErrDuplicateSerial
	}
	return nil, err
}

func headerMatches(header []string) bool {
	if len(header) != len(Header) {
		return false
	}
	for i := range Header {
		if header[i] != Header[i] {
			return false
		}
	}
	return true
}

func splitURLs(raw string) []string {
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		urls = append(urls, strings.TrimSpace(p))
	}
	return urls
}

func invalidURLs(urls []string) []string {
	var invalid []string
	for _, u := range urls {
		if !urlcheck.IsValid(u) {
			invalid = append(invalid, u)
		}
	}
	return invalid
}
