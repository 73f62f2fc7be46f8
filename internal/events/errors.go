package events

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

type SourceErrorCause string

const (
	ErrCauseReadFailure  SourceErrorCause = "failed to read events"
	ErrCauseParseFailure SourceErrorCause = "failed to parse events"
	ErrCauseInvalidEvent SourceErrorCause = "invalid event"
	ErrCauseQueryFailure SourceErrorCause = "event query failed"
)

type SourceError struct {
	Message   string
	Retryable bool
	Cause     SourceErrorCause
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("event source error: %s: %s", e.Cause, e.Message)
}

func (e *SourceError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapSourceErrorToMetadataCause maps event source failures to the
// canonical metadata.ErrorCause table. Observational only.
func MapSourceErrorToMetadataCause(err *SourceError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseReadFailure, ErrCauseQueryFailure:
		return metadata.CauseSourceFailure
	case ErrCauseParseFailure, ErrCauseInvalidEvent:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
