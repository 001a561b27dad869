package domain

// Product is a catalog entry identified by its serial number.
type Product struct {
	ID           int64  `db:"id" json:"id"`
	SerialNumber string `db:"serial_number" json:"serial_number"`
	ProductName  string `db:"product_name" json:"product_name"`
}

// Image is one input URL of a product and, once processed, the path of its
// resized copy.
type Image struct {
	ID             int64   `db:"id" json:"id"`
	ProductID      int64   `db:"product_id" json:"product_id"`
	InputImageURL  string  `db:"input_image_url" json:"input_image_url"`
	OutputImageURL *string `db:"output_image_url" json:"output_image_url"`
}
