package resolver

import (
	"context"

	"github.com/rohmanhakim/listing-enricher/internal/content"
	"golang.org/x/sync/errgroup"
)

// ResolveMany resolves every unique identifier in ids concurrently and
// returns one entry per unique identifier. It waits for every task; a
// cancelled ctx makes the outstanding tasks settle on degraded records
// instead of dropping them.
func (r *Resolver) ResolveMany(ctx context.Context, ids []string) map[string]content.ResolvedMetadata {
	unique := dedup(ids)
	resolved := make(map[string]content.ResolvedMetadata, len(unique))
	if len(unique) == 0 {
		return resolved
	}

	// one slot per task, written once by its owner
	results := make([]content.ResolvedMetadata, len(unique))

	var group errgroup.Group
	if r.concurrency > 0 {
		group.SetLimit(r.concurrency)
	}
	for i, id := range unique {
		group.Go(func() error {
			results[i] = r.ResolveOne(ctx, id)
			return nil
		})
	}
	_ = group.Wait()

	for i, id := range unique {
		resolved[id] = results[i]
	}
	return resolved
}

// dedup keeps the first occurrence of each identifier, in input order.
func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
