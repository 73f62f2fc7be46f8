package identifier

import (
	"fmt"

	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

type DecodeErrorCause string

const (
	ErrCauseIllFormed  DecodeErrorCause = "ill-formed identifier"
	ErrCauseCidDecode  DecodeErrorCause = "cid decode failed"
	ErrCauseHashDecode DecodeErrorCause = "multihash decode failed"
)

// DecodeError is returned by Decode only. Validate never fails.
type DecodeError struct {
	Message string
	Cause   DecodeErrorCause
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("identifier error: %s: %s", e.Cause, e.Message)
}

func (e *DecodeError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
