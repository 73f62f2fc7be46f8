package index

import (
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/render"
)

const (
	displayNamePrefix      = "Listing #"
	displayLocationDefault = "Location TBD"
)

// EnhancedListing is the render-ready view of one listing for one merge
// pass. It is derived data and is rebuilt on every pass.
type EnhancedListing struct {
	ListingID string

	// latest state per event type; nil when the listing has no such event
	Created     *events.Created
	MetadataURI string
	PrivateData *events.PrivateDataSet

	// Metadata is the resolved document for MetadataURI, nil when the
	// listing has no metadata URI.
	Metadata *content.ResolvedMetadata

	DisplayName     string
	DisplayLocation string
	HasMetadata     bool
	HasPrivateData  bool

	DescriptionMarkdown string
	DescriptionHTML     string
	DescriptionText     string
	// DescriptionLinks lists the images and links of the description in
	// document order.
	DescriptionLinks []render.Link

	// UpdatedAtBlock is the highest block among the selected events.
	UpdatedAtBlock uint64
}
