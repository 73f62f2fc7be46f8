package content

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

type ContentErrorCause string

const (
	ErrCauseEmptyBody ContentErrorCause = "empty body"
	ErrCauseNotJSON   ContentErrorCause = "body is not valid JSON"
	ErrCauseNotObject ContentErrorCause = "document is not a JSON object"
)

type ContentError struct {
	Message   string
	Retryable bool
	Cause     ContentErrorCause
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content error: %s", e.Cause)
}

func (e *ContentError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapContentErrorToMetadataCause maps content errors to the canonical
// metadata.ErrorCause table. Observational only.
func MapContentErrorToMetadataCause(err *ContentError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseEmptyBody, ErrCauseNotJSON, ErrCauseNotObject:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
