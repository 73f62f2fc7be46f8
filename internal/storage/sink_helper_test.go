package storage_test

import (
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/index"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/hashutil"
)

// metadataSinkMock is a mock for metadata.MetadataSink
type metadataSinkMock struct {
	metadata.NoopSink
	recordErrorCalled    bool
	recordErrorAction    string
	recordErrorCause     metadata.ErrorCause
	recordErrorAttrs     []metadata.Attribute
	recordArtifactCalled bool
	recordArtifactKind   metadata.ArtifactKind
	recordArtifactPath   string
	recordArtifactAttrs  []metadata.Attribute
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.recordErrorCalled = true
	m.recordErrorAction = action
	m.recordErrorCause = cause
	m.recordErrorAttrs = attrs
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.recordArtifactCalled = true
	m.recordArtifactKind = kind
	m.recordArtifactPath = path
	m.recordArtifactAttrs = attrs
}

// Reset clears all recorded state
func (m *metadataSinkMock) Reset() {
	*m = metadataSinkMock{}
}

func createTestListings() []index.EnhancedListing {
	return []index.EnhancedListing{
		{
			ListingID:       "1",
			MetadataURI:     "bafkreiexample",
			Metadata:        &content.ResolvedMetadata{Name: "Casa", Location: "Lisbon, Portugal", Source: content.SourceNetwork},
			DisplayName:     "Casa",
			DisplayLocation: "Lisbon, Portugal",
			HasMetadata:     true,
			UpdatedAtBlock:  12,
		},
		{
			ListingID:       "2",
			PrivateData:     &events.PrivateDataSet{Meta: events.Meta{ListingID: "2", BlockNumber: 9}, EncPrivDataCid: "bafkreiprivate"},
			DisplayName:     "Listing #2",
			DisplayLocation: "Location TBD",
			HasPrivateData:  true,
			UpdatedAtBlock:  9,
		},
	}
}

// findAttrValue finds an attribute value by key in a slice of attributes
func findAttrValue(attrs []metadata.Attribute, key metadata.AttributeKey) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

func hashOf(data []byte, algo hashutil.HashAlgo) string {
	h, _ := hashutil.HashBytes(data, algo)
	return h
}
