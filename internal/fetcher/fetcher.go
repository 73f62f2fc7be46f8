package fetcher

import (
	"context"

	"github.com/rohmanhakim/listing-enricher/pkg/failure"
)

// Fetcher performs exactly one retrieval attempt. Retries and fallback
// belong to the caller.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
	) (FetchResult, failure.ClassifiedError)
}
