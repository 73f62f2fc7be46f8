package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/cache"
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/fetcher"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/identifier"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
)

/*
Responsibilities

- Turn any string into exactly one ResolvedMetadata
- Try gateway targets strictly in order, stop at the first usable document
- Fall back to the deterministic degraded record

ResolveOne is total: ill-formed input, exhausted gateways, a cancelled
context and even a panicking fetcher all end in a degraded record.
Only network-sourced results are cached.
*/

type Resolver struct {
	metadataSink metadata.MetadataSink
	gateways     *gateway.Resolver
	fetcher      fetcher.Fetcher
	cache        cache.Cache
	timeout      time.Duration
	userAgent    string
	concurrency  int
}

func NewResolver(
	metadataSink metadata.MetadataSink,
	gateways *gateway.Resolver,
	f fetcher.Fetcher,
	opts Options,
) (*Resolver, error) {
	if gateways == nil {
		return nil, ErrNilGateways
	}
	if f == nil {
		return nil, ErrNilFetcher
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = fetcher.DefaultTimeout
	}
	if opts.Concurrency < 0 {
		opts.Concurrency = 0
	}
	return &Resolver{
		metadataSink: metadataSink,
		gateways:     gateways,
		fetcher:      f,
		cache:        opts.Cache,
		timeout:      opts.Timeout,
		userAgent:    opts.UserAgent,
		concurrency:  opts.Concurrency,
	}, nil
}

func (r *Resolver) ResolveOne(ctx context.Context, rawID string) (result content.ResolvedMetadata) {
	startTime := time.Now()
	attempts := 0

	defer func() {
		if recovered := recover(); recovered != nil {
			r.recordPanic(rawID, recovered)
			result = content.Degraded(rawID)
		}
		r.metadataSink.RecordResolution(shorten(rawID), string(result.Source), attempts, time.Since(startTime))
	}()

	classification := identifier.Validate(rawID)
	if !classification.WellFormed && !classification.AbsoluteURL {
		r.metadataSink.RecordWarning(
			time.Now(),
			"resolver",
			"Resolver.ResolveOne",
			"ill-formed identifier, using degraded record",
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrIdentifier, shorten(rawID)),
			},
		)
		return content.Degraded(rawID)
	}

	if r.cache == nil {
		return r.resolveNetwork(ctx, rawID, &attempts)
	}

	result, _ = r.cache.GetOrLoad(ctx, rawID, func(loadCtx context.Context) (content.ResolvedMetadata, bool) {
		loaded := r.loadNetwork(loadCtx, rawID, &attempts)
		return loaded, loaded.IsNetwork()
	})
	return result
}

// loadNetwork runs inside a shared cache load, where a panic would be
// re-raised on a goroutine nobody can recover.
func (r *Resolver) loadNetwork(ctx context.Context, rawID string, attempts *int) (result content.ResolvedMetadata) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.recordPanic(rawID, recovered)
			result = content.Degraded(rawID)
		}
	}()
	return r.resolveNetwork(ctx, rawID, attempts)
}

func (r *Resolver) recordPanic(rawID string, recovered any) {
	r.metadataSink.RecordError(
		time.Now(),
		"resolver",
		"Resolver.ResolveOne",
		metadata.CauseInvariantViolation,
		fmt.Sprintf("recovered from panic: %v", recovered),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrIdentifier, shorten(rawID)),
		},
	)
}

// resolveNetwork walks the target list in order. attempts counts the
// fetches that were issued.
func (r *Resolver) resolveNetwork(ctx context.Context, rawID string, attempts *int) content.ResolvedMetadata {
	callerMethod := "Resolver.resolveNetwork"

	for _, target := range r.gateways.Resolve(rawID) {
		if ctx.Err() != nil {
			break
		}
		*attempts++

		fetched, err := r.fetcher.Fetch(ctx, fetcher.NewFetchParam(target, r.userAgent, r.timeout))
		if err != nil {
			// recorded by the fetcher
			continue
		}

		resolved, contentErr := content.Decode(fetched.Body())
		if contentErr != nil {
			r.metadataSink.RecordError(
				time.Now(),
				"resolver",
				callerMethod,
				content.MapContentErrorToMetadataCause(contentErr),
				contentErr.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrIdentifier, shorten(rawID)),
					metadata.NewAttr(metadata.AttrURL, target.URL),
					metadata.NewAttr(metadata.AttrMessage, contentErr.Message),
				},
			)
			continue
		}

		resolved.Cid = rawID
		resolved.Gateway = target.Gateway()
		return resolved
	}

	details := "all gateways exhausted, using degraded record"
	if ctx.Err() != nil {
		details = "resolution cancelled, using degraded record"
	}
	r.metadataSink.RecordWarning(
		time.Now(),
		"resolver",
		callerMethod,
		details,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrIdentifier, shorten(rawID)),
		},
	)
	return content.Degraded(rawID)
}
