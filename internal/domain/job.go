// Package domain holds the shared types of the catalog: products, images,
// and the jobs that connect them.
package domain

// JobStatus is the lifecycle state of an image job.
type JobStatus string

const (
	// JobStatusPending is the state between enqueue and claim.
	JobStatusPending JobStatus = "PENDING"
	// JobStatusProgress means a worker has claimed the job.
	JobStatusProgress JobStatus = "PROGRESS"
	// JobStatusSuccess is terminal: the result payload is recorded.
	JobStatusSuccess JobStatus = "SUCCESS"
	// JobStatusFailure is terminal: the error message is recorded.
	JobStatusFailure JobStatus = "FAILURE"
	// JobStatusUnknown is never stored; it is reported for ids with no
	// job row.
	JobStatusUnknown JobStatus = "UNKNOWN"
)

// Valid reports whether s is a storable status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProgress, JobStatusSuccess, JobStatusFailure:
		return true
	}
	return false
}

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure
}

// Job is one enqueued unit of image work: every URL of one CSV row.
type Job struct {
	JobID     string
	ProductID int64
	InputURLs []string
	Status    JobStatus
}

// JobMessage is the broker payload. Only the id travels over RabbitMQ; the
// jobs table carries everything else.
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}

// JobResult is the payload recorded for a SUCCESS job and returned by the
// status endpoint.
type JobResult struct {
	SerialNumber    string   `json:"serial_number"`
	ProductName     string   `json:"product_name"`
	InputImageURLs  []string `json:"input_image_urls"`
	OutputImageURLs []string `json:"output_image_urls"`
	OutputCSVPath   string   `json:"output_csv_path"`
}

// JobStatusRecord is the row the status endpoint reads. Result holds the
// raw JSON payload for SUCCESS jobs and the literal null otherwise.
type JobStatusRecord struct {
	JobID        string    `db:"job_id"`
	Status       JobStatus `db:"status"`
	Result       []byte    `db:"result"`
	ErrorMessage string    `db:"error_message"`
}

// ProcessedImage pairs one input URL with the file its resized copy was
// written to.
type ProcessedImage struct {
	InputURL   string
	OutputPath string
}
