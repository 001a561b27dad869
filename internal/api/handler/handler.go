// Package handler implements the HTTP handlers for uploads, job status and
// product CRUD.
package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/cuongbtq/catalog-imaging/internal/api/storage"
	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// Ingestor validates an uploaded CSV and enqueues one job per row.
type Ingestor interface {
	IngestCSV(ctx context.Context, r io.Reader) ([]string, error)
}

// ResultGetter reads a job's status record from the result store.
type ResultGetter interface {
	GetResult(ctx context.Context, jobID string) (*domain.JobStatusRecord, error)
}

// ProductStore is the persistence surface the product handlers need.
type ProductStore interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, afterID int64, limit int) ([]storage.ProductWithCount, error)
	CreateProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, serialNumber, productName *string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProductImages(ctx context.Context, productID int64) ([]domain.Image, error)
	ListAllImages(ctx context.Context) ([]storage.ImageWithProduct, error)
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Logger         *slog.Logger
	Ingestor       Ingestor
	Queue          ResultGetter
	Store          ProductStore
	UploadDir      string
	MaxUploadBytes int64
}

// Handler serves the catalog API.
type Handler struct {
	logger         *slog.Logger
	ingestor       Ingestor
	queue          ResultGetter
	store          ProductStore
	uploadDir      string
	maxUploadBytes int64
}

// New creates a Handler.
func New(deps *Dependencies) *Handler {
	return &Handler{
		logger:         deps.Logger,
		ingestor:       deps.Ingestor,
		queue:          deps.Queue,
		store:          deps.Store,
		uploadDir:      deps.UploadDir,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}
