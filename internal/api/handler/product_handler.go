package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/catalog-imaging/internal/api/dto"
	"github.com/cuongbtq/catalog-imaging/internal/domain"
)

// ListProducts handles GET /api/products.
// Supports keyset pagination via an opaque cursor; page_size defaults to 20
// and caps at 100. Without page_size and cursor the full list is returned.
func (h *Handler) ListProducts(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	paginated := req.PageSize > 0 || req.Cursor != ""
	if paginated {
		if req.PageSize <= 0 {
			req.PageSize = 20
		}
		if req.PageSize > 100 {
			req.PageSize = 100
		}
	}

	afterID, err := DecodeProductCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	products, err := h.store.ListProducts(c.Request.Context(), afterID, req.PageSize)
	if err != nil {
		h.logger.Error("Failed to list products", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}

	hasMore := paginated && len(products) > req.PageSize
	if hasMore {
		products = products[:req.PageSize]
	}

	resp := dto.ListProductsResponse{Products: make([]dto.ProductDTO, len(products))}
	for i, p := range products {
		resp.Products[i] = dto.ProductDTO{
			ID:           p.ID,
			SerialNumber: p.SerialNumber,
			ProductName:  p.ProductName,
			ImageCount:   p.ImageCount,
		}
	}
	if hasMore {
		resp.NextCursor = EncodeProductCursor(products[len(products)-1].ID)
	}

	c.JSON(http.StatusOK, resp)
}

// GetProduct handles GET /api/products/:id, returning the product with its
// images.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondProductError(c, id, err, "Failed to get product")
		return
	}

	images, err := h.store.ListProductImages(c.Request.Context(), id)
	if err != nil {
		h.respondProductError(c, id, err, "Failed to get product images")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            product.ID,
		"serial_number": product.SerialNumber,
		"product_name":  product.ProductName,
		"images":        imageDTOs(images),
	})
}

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number and product_name are required"})
		return
	}

	product, err := h.store.CreateProduct(c.Request.Context(), req.SerialNumber, req.ProductName)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSerial) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number already exists"})
			return
		}
		h.logger.Error("Failed to create product", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id with partial semantics:
// omitted fields keep their values.
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.SerialNumber == nil && req.ProductName == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if (req.SerialNumber != nil && *req.SerialNumber == "") ||
		(req.ProductName != nil && *req.ProductName == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fields must not be empty"})
		return
	}

	product, err := h.store.UpdateProduct(c.Request.Context(), id, req.SerialNumber, req.ProductName)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSerial) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "serial_number already exists"})
			return
		}
		h.respondProductError(c, id, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id. Images go with the
// product.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondProductError(c, id, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// ListProductImages handles GET /api/products/:id/images.
func (h *Handler) ListProductImages(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}

	if _, err := h.store.GetProduct(c.Request.Context(), id); err != nil {
		h.respondProductError(c, id, err, "Failed to get product")
		return
	}

	images, err := h.store.ListProductImages(c.Request.Context(), id)
	if err != nil {
		h.respondProductError(c, id, err, "Failed to list product images")
		return
	}

	c.JSON(http.StatusOK, dto.ProductImagesResponse{ProductID: id, Images: imageDTOs(images)})
}

// ListImages handles GET /api/products/images, the flat catalog-wide image
// list.
func (h *Handler) ListImages(c *gin.Context) {
	images, err := h.store.ListAllImages(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list images", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *Handler) productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondProductError(c *gin.Context, id int64, err error, msg string) {
	if errors.Is(err, domain.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	h.logger.Error(msg, slog.Int64("product_id", id), slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func imageDTOs(images []domain.Image) []dto.ImageDTO {
	out := make([]dto.ImageDTO, len(images))
	for i, img := range images {
		out[i] = dto.ImageDTO{
			ID:             img.ID,
			ProductID:      img.ProductID,
			InputImageURL:  img.InputImageURL,
			OutputImageURL: img.OutputImageURL,
		}
	}
	return out
}
