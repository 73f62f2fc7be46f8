package index

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/internal/render"
)

/*
Responsibilities

- Select the latest Created, MetadataURISet and PrivateDataSet per listing
- Resolve the selected metadata URIs in one batch
- Join both into one EnhancedListing per listing

Merge never fails. A listing appears in the output when at least one of
the three collections mentions it. A listing whose latest MetadataURISet
carries an empty URI has no metadata.
*/

// BatchResolver resolves a set of identifiers. Implementations must return
// an entry for every unique identifier.
type BatchResolver interface {
	ResolveMany(ctx context.Context, ids []string) map[string]content.ResolvedMetadata
}

type Merger struct {
	metadataSink metadata.MetadataSink
	finalizer    metadata.PassFinalizer
	resolver     BatchResolver
}

func NewMerger(
	metadataSink metadata.MetadataSink,
	finalizer metadata.PassFinalizer,
	resolver BatchResolver,
) (*Merger, error) {
	if resolver == nil {
		return nil, ErrNilResolver
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if finalizer == nil {
		finalizer = &metadata.NoopSink{}
	}
	return &Merger{
		metadataSink: metadataSink,
		finalizer:    finalizer,
		resolver:     resolver,
	}, nil
}

// MergeCollections is Merge over a loaded events.Collections.
func (m *Merger) MergeCollections(ctx context.Context, collections events.Collections) []EnhancedListing {
	return m.Merge(ctx, collections.Created, collections.MetadataURISet, collections.PrivateDataSet)
}

// Merge builds one EnhancedListing per listing id, sorted by listing id.
func (m *Merger) Merge(
	ctx context.Context,
	created []events.Created,
	metadataURIs []events.MetadataURISet,
	privateData []events.PrivateDataSet,
) []EnhancedListing {
	passID := uuid.NewString()
	startTime := time.Now()

	latestCreated := latestByListing(created)
	latestURI := latestByListing(metadataURIs)
	latestPrivate := latestByListing(privateData)

	listingIDs := make(map[string]struct{}, len(latestCreated)+len(latestURI)+len(latestPrivate))
	for id := range latestCreated {
		listingIDs[id] = struct{}{}
	}
	for id := range latestURI {
		listingIDs[id] = struct{}{}
	}
	for id := range latestPrivate {
		listingIDs[id] = struct{}{}
	}

	uniqueURIs := make(map[string]struct{}, len(latestURI))
	for _, selection := range latestURI {
		if uri := selection.event.MetadataURI; uri != "" {
			uniqueURIs[uri] = struct{}{}
		}
	}
	identifiers := make([]string, 0, len(uniqueURIs))
	for uri := range uniqueURIs {
		identifiers = append(identifiers, uri)
	}
	sort.Strings(identifiers)

	resolved := map[string]content.ResolvedMetadata{}
	if len(identifiers) > 0 {
		resolved = m.resolver.ResolveMany(ctx, identifiers)
	}

	listings := make([]EnhancedListing, 0, len(listingIDs))
	for listingID := range listingIDs {
		listing := EnhancedListing{ListingID: listingID}

		if selection, ok := latestCreated[listingID]; ok {
			event := selection.event
			listing.Created = &event
			listing.UpdatedAtBlock = max(listing.UpdatedAtBlock, event.BlockNumber)
		}
		if selection, ok := latestURI[listingID]; ok {
			listing.MetadataURI = selection.event.MetadataURI
			listing.UpdatedAtBlock = max(listing.UpdatedAtBlock, selection.event.BlockNumber)
			if listing.MetadataURI != "" {
				if record, found := resolved[listing.MetadataURI]; found {
					listing.Metadata = &record
				} else {
					m.recordMissingResolution(passID, listingID, listing.MetadataURI)
				}
			}
		}
		if selection, ok := latestPrivate[listingID]; ok {
			event := selection.event
			listing.PrivateData = &event
			listing.UpdatedAtBlock = max(listing.UpdatedAtBlock, event.BlockNumber)
		}

		m.derive(passID, &listing)
		listings = append(listings, listing)
	}

	sort.Slice(listings, func(i, j int) bool {
		return lessListingID(listings[i].ListingID, listings[j].ListingID)
	})

	degraded := 0
	for _, record := range resolved {
		if record.Source == content.SourceDegraded {
			degraded++
		}
	}
	m.finalizer.RecordFinalPassStats(passID, len(listings), len(identifiers), degraded, time.Since(startTime))

	return listings
}

// derive fills the presentation fields from the joined state.
func (m *Merger) derive(passID string, listing *EnhancedListing) {
	listing.DisplayName = displayNamePrefix + listing.ListingID
	listing.DisplayLocation = displayLocationDefault

	if listing.Metadata != nil {
		if listing.Metadata.HasName() {
			listing.DisplayName = listing.Metadata.Name
		}
		if listing.Metadata.HasLocation() {
			listing.DisplayLocation = listing.Metadata.Location
		}
		listing.HasMetadata = listing.Metadata.IsNetwork()

		if listing.Metadata.HasDescription() {
			rendered, err := render.Description(listing.Metadata.Description)
			if err != nil {
				m.metadataSink.RecordError(
					time.Now(),
					"index",
					"Merger.derive",
					render.MapRenderErrorToMetadataCause(err),
					err.Error(),
					[]metadata.Attribute{
						metadata.NewAttr(metadata.AttrPassID, passID),
						metadata.NewAttr(metadata.AttrListingID, listing.ListingID),
					},
				)
				listing.DescriptionText = strings.Join(strings.Fields(listing.Metadata.Description), " ")
			} else {
				listing.DescriptionMarkdown = rendered.Markdown
				listing.DescriptionHTML = rendered.HTML
				listing.DescriptionText = rendered.Text
				listing.DescriptionLinks = rendered.Links
			}
		}
	}

	listing.HasPrivateData = listing.PrivateData != nil && listing.PrivateData.EncPrivDataCid != ""
}

func (m *Merger) recordMissingResolution(passID, listingID, uri string) {
	m.metadataSink.RecordError(
		time.Now(),
		"index",
		"Merger.Merge",
		metadata.CauseInvariantViolation,
		"batch resolver returned no entry for a requested identifier",
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrPassID, passID),
			metadata.NewAttr(metadata.AttrListingID, listingID),
			metadata.NewAttr(metadata.AttrIdentifier, uri),
		},
	)
}
