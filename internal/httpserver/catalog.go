package httpserver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/index"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
)

// ErrNotLoaded is returned while no refresh has completed yet.
var ErrNotLoaded = errors.New("listings have not been loaded yet")

// ListingMerger turns loaded event collections into enhanced listings.
type ListingMerger interface {
	MergeCollections(ctx context.Context, collections events.Collections) []index.EnhancedListing
}

// Catalog holds the most recent merge result. A failed or cancelled refresh
// keeps the previous result.
type Catalog struct {
	metadataSink metadata.MetadataSink
	source       events.Source
	merger       ListingMerger

	refreshMu sync.Mutex // serializes refreshes

	mu          sync.RWMutex
	listings    []index.EnhancedListing
	byID        map[string]int
	refreshedAt time.Time
}

func NewCatalog(metadataSink metadata.MetadataSink, source events.Source, merger ListingMerger) *Catalog {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Catalog{
		metadataSink: metadataSink,
		source:       source,
		merger:       merger,
	}
}

// Refresh reloads every collection from the source and re-merges.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	collections, err := events.Load(ctx, c.source)
	if err != nil {
		c.metadataSink.RecordError(
			time.Now(),
			"httpserver",
			"Catalog.Refresh",
			metadata.CauseSourceFailure,
			err.Error(),
			nil,
		)
		return err
	}

	listings := c.merger.MergeCollections(ctx, collections)
	// a cancelled merge settles on degraded records
	if err := ctx.Err(); err != nil {
		c.metadataSink.RecordWarning(
			time.Now(),
			"httpserver",
			"Catalog.Refresh",
			"refresh cancelled, keeping previous listings",
			nil,
		)
		return err
	}
	byID := make(map[string]int, len(listings))
	for i, listing := range listings {
		byID[listing.ListingID] = i
	}

	c.mu.Lock()
	c.listings = listings
	c.byID = byID
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	return nil
}

// Run refreshes every interval until ctx is done. A non-positive interval
// returns immediately.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Listings returns the latest merge result and when it was computed.
func (c *Catalog) Listings() ([]index.EnhancedListing, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.byID == nil {
		return nil, time.Time{}, ErrNotLoaded
	}
	return c.listings, c.refreshedAt, nil
}

// Listing looks up one listing by id.
func (c *Catalog) Listing(listingID string) (index.EnhancedListing, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.byID == nil {
		return index.EnhancedListing{}, false, ErrNotLoaded
	}
	i, ok := c.byID[listingID]
	if !ok {
		return index.EnhancedListing{}, false, nil
	}
	return c.listings[i], true, nil
}

func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID != nil
}
