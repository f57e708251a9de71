package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Stream errors
const (
	// ErrCodeClientNotFound indicates no connection is registered for an identity.
	ErrCodeClientNotFound ErrorCode = "CLIENT_NOT_FOUND"
	// ErrCodeWriteFailed indicates the underlying stream rejected a frame.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
	// ErrCodeStreamingUnsupported indicates the response writer cannot flush.
	ErrCodeStreamingUnsupported ErrorCode = "STREAMING_UNSUPPORTED"
	// ErrCodeStreamClosed indicates a write to a stream that was torn down.
	ErrCodeStreamClosed ErrorCode = "STREAM_CLOSED"
	// ErrCodeStreamBackpressure indicates the per-connection queue is full.
	ErrCodeStreamBackpressure ErrorCode = "STREAM_BACKPRESSURE"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeClientNotFound:     false,
	ErrCodeWriteFailed:        false,
	ErrCodeStreamClosed:       false,
	ErrCodeStreamBackpressure: true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
