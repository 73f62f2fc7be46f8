package render

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

type RenderErrorCause string

const (
	ErrCauseConversionFailure RenderErrorCause = "html to markdown conversion failed"
	ErrCauseParseFailure      RenderErrorCause = "rendered html could not be parsed"
)

type RenderError struct {
	Message   string
	Retryable bool
	Cause     RenderErrorCause
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: %s", e.Cause)
}

func (e *RenderError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapRenderErrorToMetadataCause maps render errors to the canonical
// metadata.ErrorCause table. Observational only.
func MapRenderErrorToMetadataCause(err *RenderError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseConversionFailure, ErrCauseParseFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
