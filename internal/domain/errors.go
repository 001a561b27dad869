package domain

import "errors"

var (
	// ErrProductNotFound means the product id has no row.
	ErrProductNotFound = errors.New("product not found")

	// ErrJobNotFound means the job id has no row; the status endpoint
	// reports it as UNKNOWN.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateSerial means the serial number is already taken.
	ErrDuplicateSerial = errors.New("serial number already exists")

	// ErrJobAlreadyClaimed means another delivery moved the job out of
	// PENDING first.
	ErrJobAlreadyClaimed = errors.New("job already claimed")

	// ErrInvalidPayload means a broker message could not be used and must
	// not be requeued.
	ErrInvalidPayload = errors.New("invalid message payload")
)
