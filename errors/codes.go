package errors

// ErrorCode classifies an AppError
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_HTTP_OK
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_NOT_FOUND
	ErrorCode_UNAUTHENTICATED

	// Recording pipeline
	ErrorCode_CONFIGURATION
	ErrorCode_ENCODE_FAILED
	ErrorCode_MERGE_FAILED
	ErrorCode_MISSING_CHECKPOINT
	ErrorCode_NO_CHECKPOINTS
	ErrorCode_DEVICE_UNAVAILABLE
	ErrorCode_IO_FAILED
	ErrorCode_LOCK_CONTENTION
	ErrorCode_INVALID_STATE
	ErrorCode_ALREADY_RECORDING
	ErrorCode_NO_ACTIVE_SESSION

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED
	ErrorCode_INTEGRATION_CACHE_FAILED
	ErrorCode_DB_QUERY_FAILED
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                    "UNKNOWN",
	ErrorCode_HTTP_OK:                    "HTTP_OK",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_UNAUTHENTICATED:            "UNAUTHENTICATED",
	ErrorCode_CONFIGURATION:              "CONFIGURATION",
	ErrorCode_ENCODE_FAILED:              "ENCODE_FAILED",
	ErrorCode_MERGE_FAILED:               "MERGE_FAILED",
	ErrorCode_MISSING_CHECKPOINT:         "MISSING_CHECKPOINT",
	ErrorCode_NO_CHECKPOINTS:             "NO_CHECKPOINTS",
	ErrorCode_DEVICE_UNAVAILABLE:         "DEVICE_UNAVAILABLE",
	ErrorCode_IO_FAILED:                  "IO_FAILED",
	ErrorCode_LOCK_CONTENTION:            "LOCK_CONTENTION",
	ErrorCode_INVALID_STATE:              "INVALID_STATE",
	ErrorCode_ALREADY_RECORDING:          "ALREADY_RECORDING",
	ErrorCode_NO_ACTIVE_SESSION:          "NO_ACTIVE_SESSION",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:   "INTEGRATION_CACHE_FAILED",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the code by name in JSON bodies
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsFatal reports whether a session should be aborted on this kind of failure
func (c ErrorCode) IsFatal() bool {
	switch c {
	case ErrorCode_CONFIGURATION, ErrorCode_MERGE_FAILED, ErrorCode_MISSING_CHECKPOINT,
		ErrorCode_NO_CHECKPOINTS, ErrorCode_IO_FAILED:
		return true
	default:
		return false
	}
}
