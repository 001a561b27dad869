package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/catalog-imaging/internal/api/storage"
	"github.com/cuongbtq/catalog-imaging/internal/domain"
	"github.com/cuongbtq/catalog-imaging/internal/ingest"
)

type fakeIngestor struct {
	taskIDs []string
	err     error
	gotCSV  string
}

func (f *fakeIngestor) IngestCSV(_ context.Context, r io.Reader) ([]string, error) {
	body, _ := io.ReadAll(r)
	f.gotCSV = string(body)
	if f.err != nil {
		return nil, f.err
	}
	return f.taskIDs, nil
}

type fakeResultGetter struct {
	rec *domain.JobStatusRecord
	err error
}

func (f *fakeResultGetter) GetResult(context.Context, string) (*domain.JobStatusRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeProductStore struct {
	products map[int64]*domain.Product
	listed   []storage.ProductWithCount
	images   map[int64][]domain.Image
	all      []storage.ImageWithProduct
	err      error
	deleted  []int64
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products: map[int64]*domain.Product{},
		images:   map[int64][]domain.Image{},
	}
}

func (f *fakeProductStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductStore) ListProducts(_ context.Context, afterID int64, limit int) ([]storage.ProductWithCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.ProductWithCount
	for _, p := range f.listed {
		if p.ID > afterID {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit+1 {
		out = out[:limit+1]
	}
	return out, nil
}

func (f *fakeProductStore) CreateProduct(_ context.Context, serialNumber, productName string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &domain.Product{ID: int64(len(f.products) + 1), SerialNumber: serialNumber, ProductName: productName}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductStore) UpdateProduct(_ context.Context, id int64, serialNumber, productName *string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if serialNumber != nil {
		p.SerialNumber = *serialNumber
	}
	if productName != nil {
		p.ProductName = *productName
	}
	return p, nil
}

func (f *fakeProductStore) DeleteProduct(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(f.products, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProductStore) ListProductImages(_ context.Context, productID int64) ([]domain.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.images[productID], nil
}

func (f *fakeProductStore) ListAllImages(context.Context) ([]storage.ImageWithProduct, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

type testEnv struct {
	ingestor *fakeIngestor
	results  *fakeResultGetter
	store    *fakeProductStore
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		ingestor: &fakeIngestor{},
		results:  &fakeResultGetter{},
		store:    newFakeProductStore(),
	}

	h := New(&Dependencies{
		Logger:         slog.New(slog.DiscardHandler),
		Ingestor:       env.ingestor,
		Queue:          env.results,
		Store:          env.store,
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
	})

	r := gin.New()
	r.POST("/upload", h.Upload)
	r.GET("/status/:task_id", h.Status)
	r.GET("/api/products/images", h.ListImages)
	r.GET("/api/products", h.ListProducts)
	r.POST("/api/products", h.CreateProduct)
	r.GET("/api/products/:id", h.GetProduct)
	r.PUT("/api/products/:id", h.UpdateProduct)
	r.DELETE("/api/products/:id", h.DeleteProduct)
	r.GET("/api/products/:id/images", h.ListProductImages)

	env.router = r
	return env
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUpload_Accepted(t *testing.T) {
	env := newTestEnv(t)
	env.ingestor.taskIDs = []string{"t1", "t2"}

	csvBody := "Serial Number,Product Name,Input Image Urls\nSN1,Widget,http://example.com/a.jpg\n"
	body, contentType := multipartCSV(t, "products.csv", csvBody)

	w := env.do(http.MethodPost, "/upload", contentType, body)

	assert.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		TaskIDs []string `json:"task_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"t1", "t2"}, resp.TaskIDs)
	assert.Equal(t, csvBody, env.ingestor.gotCSV, "the saved file must reach the ingestor intact")
}

func TestUpload_MissingFilePart(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	resp := env.do(http.MethodPost, "/upload", w.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "No file part")
}

func TestUpload_RejectsNonCSV(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartCSV(t, "products.txt", "whatever")
	w := env.do(http.MethodPost, "/upload", contentType, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only CSV files are allowed")
}

func TestUpload_OversizedFileIs400(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ingestor := &fakeIngestor{}
	h := New(&Dependencies{
		Logger:         slog.New(slog.DiscardHandler),
		Ingestor:       ingestor,
		Queue:          &fakeResultGetter{},
		Store:          newFakeProductStore(),
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 64,
	})

	r := gin.New()
	r.POST("/upload", h.Upload)

	body, contentType := multipartCSV(t, "products.csv", strings.Repeat("x", 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code, "size violations are format errors, not 413s")
	assert.Empty(t, ingestor.gotCSV, "nothing reaches the ingestor")
}

func TestUpload_ValidationErrorIs400(t *testing.T) {
	env := newTestEnv(t)
	env.ingestor.err = ingest.NewValidationError("CSV format is incorrect")

	body, contentType := multipartCSV(t, "products.csv", "bad")
	w := env.do(http.MethodPost, "/upload", contentType, body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CSV format is incorrect")
}

func TestUpload_InfrastructureErrorIs500(t *testing.T) {
	env := newTestEnv(t)
	env.ingestor.err = errors.New("connection refused")

	body, contentType := multipartCSV(t, "products.csv", "ok")
	w := env.do(http.MethodPost, "/upload", contentType, body)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused",
		"internal details must not leak to clients")
}

func TestStatus_UnknownTask(t *testing.T) {
	env := newTestEnv(t)
	env.results.err = domain.ErrJobNotFound

	w := env.do(http.MethodGet, "/status/not-a-real-id", "", nil)

	assert.Equal(t, http.StatusOK, w.Code, "unknown ids are not errors")
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN", resp["status"])
	assert.Nil(t, resp["result"])
}

func TestStatus_Terminal(t *testing.T) {
	resultJSON := []byte(`{"serial_number":"SN1","output_csv_path":"/out/SN1_x.csv"}`)

	tests := []struct {
		name       string
		rec        *domain.JobStatusRecord
		wantString string
		hasResult  bool
	}{
		{
			name:      "pending has null result",
			rec:       &domain.JobStatusRecord{JobID: "j", Status: domain.JobStatusPending},
			hasResult: false,
		},
		{
			name:      "success carries result object",
			rec:       &domain.JobStatusRecord{JobID: "j", Status: domain.JobStatusSuccess, Result: resultJSON},
			hasResult: true,
		},
		{
			name:       "failure carries the error string in result",
			rec:        &domain.JobStatusRecord{JobID: "j", Status: domain.JobStatusFailure, ErrorMessage: "all images failed"},
			wantString: "all images failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.results.rec = tt.rec

			w := env.do(http.MethodGet, "/status/j", "", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.rec.Status), resp["status"])

			switch {
			case tt.hasResult:
				require.NotNil(t, resp["result"])
				result := resp["result"].(map[string]any)
				assert.Equal(t, "SN1", result["serial_number"])
			case tt.wantString != "":
				assert.Equal(t, tt.wantString, resp["result"])
			default:
				assert.Nil(t, resp["result"])
			}
		})
	}
}

func TestGetProduct_WithImages(t *testing.T) {
	env := newTestEnv(t)
	env.store.products[1] = &domain.Product{ID: 1, SerialNumber: "SN1", ProductName: "Widget"}
	out := "/out/images/x.jpg"
	env.store.images[1] = []domain.Image{
		{ID: 10, ProductID: 1, InputImageURL: "http://example.com/a.jpg", OutputImageURL: &out},
	}

	w := env.do(http.MethodGet, "/api/products/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SN1", resp["serial_number"])
	images := resp["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, out, images[0].(map[string]any)["output_image_url"])
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/products/99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProduct_BadID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"serial_number":"SN1","product_name":"Widget"}`)
	w := env.do(http.MethodPost, "/api/products", "application/json", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"serial_number":"SN1"`)
}

func TestCreateProduct_DuplicateSerial(t *testing.T) {
	env := newTestEnv(t)
	env.store.err = domain.ErrDuplicateSerial

	body := bytes.NewBufferString(`{"serial_number":"SN1","product_name":"Widget"}`)
	w := env.do(http.MethodPost, "/api/products", "application/json", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestCreateProduct_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"serial_number":"SN1"}`)
	w := env.do(http.MethodPost, "/api/products", "application/json", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProduct_Partial(t *testing.T) {
	env := newTestEnv(t)
	env.store.products[1] = &domain.Product{ID: 1, SerialNumber: "SN1", ProductName: "Widget"}

	body := bytes.NewBufferString(`{"product_name":"Widget v2"}`)
	w := env.do(http.MethodPut, "/api/products/1", "application/json", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Widget v2", env.store.products[1].ProductName)
	assert.Equal(t, "SN1", env.store.products[1].SerialNumber, "omitted fields keep their values")
}

func TestUpdateProduct_EmptyBody(t *testing.T) {
	env := newTestEnv(t)
	env.store.products[1] = &domain.Product{ID: 1, SerialNumber: "SN1", ProductName: "Widget"}

	w := env.do(http.MethodPut, "/api/products/1", "application/json", bytes.NewBufferString(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	env.store.products[1] = &domain.Product{ID: 1, SerialNumber: "SN1", ProductName: "Widget"}

	w := env.do(http.MethodDelete, "/api/products/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{1}, env.store.deleted)

	w = env.do(http.MethodDelete, "/api/products/1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts_Pagination(t *testing.T) {
	env := newTestEnv(t)
	for i := int64(1); i <= 5; i++ {
		env.store.listed = append(env.store.listed, storage.ProductWithCount{
			Product:    domain.Product{ID: i, SerialNumber: "SN", ProductName: "P"},
			ImageCount: int(i),
		})
	}

	w := env.do(http.MethodGet, "/api/products?page_size=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page1 struct {
		Products []struct {
			ID int64 `json:"id"`
		} `json:"products"`
		NextCursor string `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page1))
	require.Len(t, page1.Products, 2)
	require.NotEmpty(t, page1.NextCursor)

	w = env.do(http.MethodGet, "/api/products?page_size=2&cursor="+page1.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page2 struct {
		Products []struct {
			ID int64 `json:"id"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page2))
	require.Len(t, page2.Products, 2)
	assert.Equal(t, int64(3), page2.Products[0].ID, "cursor resumes after the last returned id")
}

func TestListProducts_InvalidCursor(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/products?cursor=%21%21%21", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid cursor")
}

func TestListImages(t *testing.T) {
	env := newTestEnv(t)
	env.store.all = []storage.ImageWithProduct{
		{ID: 1, ProductID: 1, ProductName: "Widget", SerialNumber: "SN1", InputImageURL: "http://example.com/a.jpg"},
	}

	w := env.do(http.MethodGet, "/api/products/images", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"serial_number":"SN1"`)
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeProductCursor(42)
	id, err := DecodeProductCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = DecodeProductCursor("not base64 at all!!!")
	assert.Error(t, err)

	id, err = DecodeProductCursor("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	garbage := strings.Repeat("YQ==", 1)
	_, err = DecodeProductCursor(garbage)
	assert.Error(t, err, "decoded text must be a decimal id")
}
