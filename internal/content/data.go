package content

import "encoding/json"

type Source string

const (
	SourceNetwork  Source = "network"
	SourceDegraded Source = "degraded"
)

// recognized document keys
const (
	keyName        = "name"
	keyLocation    = "location"
	keyDescription = "description"
	keyImages      = "images"
	keyAmenities   = "amenities"
	keySource      = "source"
)

// ResolvedMetadata is a listing metadata document.
//
// Recognized fields are typed; every other top-level field is kept verbatim
// in Extra. An empty string or nil slice means the field was absent or did
// not have the expected type, in which case its raw value sits in Extra.
//
// Cid and Gateway describe where the document came from and are not part
// of its JSON form.
type ResolvedMetadata struct {
	Name        string
	Location    string
	Description string
	Images      []string
	Amenities   []string
	Extra       map[string]json.RawMessage
	Source      Source

	Cid     string
	Gateway string
}

func (m ResolvedMetadata) IsNetwork() bool {
	return m.Source == SourceNetwork
}

func (m ResolvedMetadata) HasName() bool {
	return m.Name != ""
}

func (m ResolvedMetadata) HasLocation() bool {
	return m.Location != ""
}

func (m ResolvedMetadata) HasDescription() bool {
	return m.Description != ""
}
