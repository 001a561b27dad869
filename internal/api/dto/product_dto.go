package dto

import "encoding/json"

type UploadResponse struct {
	TaskIDs []string `json:"task_ids"`
}

// StatusResponse reports a job's state. Result is the payload object for
// SUCCESS, the error string for FAILURE, and null otherwise.
type StatusResponse struct {
	TaskID string          `json:"task_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

type CreateProductRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
	ProductName  string `json:"product_name" binding:"required"`
}

type UpdateProductRequest struct {
	SerialNumber *string `json:"serial_number"`
	ProductName  *string `json:"product_name"`
}

type ListProductsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ProductDTO struct {
	ID           int64  `json:"id"`
	SerialNumber string `json:"serial_number"`
	ProductName  string `json:"product_name"`
	ImageCount   int    `json:"image_count"`
}

type ListProductsResponse struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type ImageDTO struct {
	ID             int64   `json:"id"`
	ProductID      int64   `json:"product_id"`
	InputImageURL  string  `json:"input_image_url"`
	OutputImageURL *string `json:"output_image_url"`
}

type ProductImagesResponse struct {
	ProductID int64      `json:"product_id"`
	Images    []ImageDTO `json:"images"`
}
