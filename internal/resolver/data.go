package resolver

import (
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/cache"
	"github.com/rohmanhakim/listing-enricher/internal/fetcher"
)

type Options struct {
	// Timeout bounds each fetch attempt. Zero means fetcher.DefaultTimeout.
	Timeout   time.Duration
	UserAgent string
	// Concurrency caps in-flight identifiers in ResolveMany. Zero means unbounded.
	Concurrency int
	// Cache is optional.
	Cache cache.Cache
}

func DefaultOptions() Options {
	return Options{
		Timeout: fetcher.DefaultTimeout,
	}
}

const maxLoggedIdentifierLength = 96

// shorten keeps log attributes bounded for garbage input.
func shorten(s string) string {
	if len(s) <= maxLoggedIdentifierLength {
		return s
	}
	return s[:maxLoggedIdentifierLength] + "..."
}
