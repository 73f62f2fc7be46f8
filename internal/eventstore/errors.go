package eventstore

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseInvalidURL    StoreErrorCause = "invalid database url"
	ErrCauseConnect       StoreErrorCause = "database unreachable"
	ErrCauseSchema        StoreErrorCause = "schema bootstrap failed"
	ErrCauseQuery         StoreErrorCause = "query failed"
	ErrCauseRowConversion StoreErrorCause = "row conversion failed"
	ErrCauseImport        StoreErrorCause = "import failed"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("eventstore error: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

// MapStoreErrorToMetadataCause maps store failures to the canonical
// metadata.ErrorCause table. Observational only.
func MapStoreErrorToMetadataCause(err *StoreError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseConnect, ErrCauseQuery:
		return metadata.CauseSourceFailure
	case ErrCauseSchema, ErrCauseImport:
		return metadata.CauseStorageFailure
	case ErrCauseRowConversion:
		return metadata.CauseContentInvalid
	case ErrCauseInvalidURL:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
