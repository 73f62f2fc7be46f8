package cache

import (
	"context"

	"github.com/rohmanhakim/listing-enricher/internal/content"
)

// Loader produces the value for a missing key. store reports whether the
// value may be kept; callers return false for results that should be
// recomputed next time (a degraded record caused by an outage).
// ctx is the context of the caller that runs the load.
type Loader func(ctx context.Context) (value content.ResolvedMetadata, store bool)

// Cache is the port for the identifier -> metadata cache that sits in
// front of the single-item resolver.
//
// This interface allows the storage backend to be swapped
// (e.g., in-memory TTL, Redis-backed) without changing resolver logic.
type Cache interface {
	// Get retrieves a live value for key.
	Get(key string) (content.ResolvedMetadata, bool)

	// Put stores value under key, replacing any existing entry.
	Put(key string, value content.ResolvedMetadata)

	// GetOrLoad returns the cached value for key, or runs load exactly once
	// across concurrent callers asking for the same missing key. hit is true
	// when no load was needed by this caller. A load left unstored because
	// its caller's ctx was cancelled is not handed to callers whose ctx is
	// still live; they load again.
	GetOrLoad(ctx context.Context, key string, load Loader) (value content.ResolvedMetadata, hit bool)

	// Len returns the number of live entries.
	Len() int
}
