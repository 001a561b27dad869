// Package storage implements product and image persistence for the API
// service.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

const pqUniqueViolation = "23505"

// Storage handles product and image database operations.
type Storage struct {
	db *sqlx.DB
}

// New creates a Storage.
func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// ProductWithCount is a product row joined with its image count.
type ProductWithCount struct {
	domain.Product
	ImageCount int `db:"image_count"`
}

// ImageWithProduct is an image row denormalized with its product fields.
type ImageWithProduct struct {
	ID             int64   `db:"id" json:"id"`
	ProductID      int64   `db:"product_id" json:"product_id"`
	ProductName    string  `db:"product_name" json:"product_name"`
	SerialNumber   string  `db:"serial_number" json:"serial_number"`
	InputImageURL  string  `db:"input_image_url" json:"input_image_url"`
	OutputImageURL *string `db:"output_image_url" json:"output_image_url"`
}

// FindProduct looks up a product by its (serial number, product name) pair.
// An absent pair returns ErrProductNotFound.
func (s *Storage) FindProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product,
		`SELECT id, serial_number, product_name FROM products
		 WHERE serial_number = $1 AND product_name = $2`,
		serialNumber, productName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to look up product: %w", err)
	}

	return &product, nil
}

// CreateProduct inserts a product atomically.
func (s *Storage) CreateProduct(ctx context.Context, serialNumber, productName string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product,
		`INSERT INTO products (serial_number, product_name)
		 VALUES ($1, $2)
		 RETURNING id, serial_number, product_name`,
		serialNumber, productName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateSerial
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &product, nil
}

// GetProduct fetches one product by id.
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

// ListProducts returns products with image counts, ordered by id. A non-nil
// cursor resumes after the given id; limit+1 rows signal another page.
func (s *Storage) ListProducts(ctx context.Context, afterID int64, limit int) ([]ProductWithCount, error) {
	query := `
		SELECT p.id, p.serial_number, p.product_name, COUNT(i.id) AS image_count
		FROM products p
		LEFT JOIN images i ON i.product_id = p.id
		WHERE p.id > $1
		GROUP BY p.id, p.serial_number, p.product_name
		ORDER BY p.id
	`
	args := []interface{}{afterID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit+1)
	}

	var products []ProductWithCount
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// UpdateProduct applies a partial update; nil fields keep their values.
func (s *Storage) UpdateProduct(ctx context.Context, id int64, serialNumber, productName *string) (*domain.Product, error) {
	var product domain.Product
	err := s.db.GetContext(ctx, &product,
		`UPDATE products
		 SET serial_number = COALESCE($2, serial_number),
		     product_name = COALESCE($3, product_name)
		 WHERE id = $1
		 RETURNING id, serial_number, product_name`,
		id, serialNumber, productName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateSerial
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return &product, nil
}

// DeleteProduct removes a product; its images go with it via the cascading
// foreign key.
func (s *Storage) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// ListProductImages returns a product's images in insertion order.
func (s *Storage) ListProductImages(ctx context.Context, productID int64) ([]domain.Image, error) {
	var images []domain.Image
	err := s.db.SelectContext(ctx, &images,
		`SELECT id, product_id, input_image_url, output_image_url
		 FROM images WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}

	return images, nil
}

// ListAllImages returns every image joined with its product fields.
func (s *Storage) ListAllImages(ctx context.Context) ([]ImageWithProduct, error) {
	var images []ImageWithProduct
	err := s.db.SelectContext(ctx, &images,
		`SELECT i.id, i.product_id, p.product_name, p.serial_number,
		        i.input_image_url, i.output_image_url
		 FROM images i
		 JOIN products p ON p.id = i.product_id
		 ORDER BY i.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return images, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
