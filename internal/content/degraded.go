package content

import (
	"github.com/rohmanhakim/listing-enricher/pkg/hashutil"
)

const (
	degradedNamePrefix  = "Hacker House "
	degradedDescription = "Metadata for this listing is temporarily unavailable. Showing placeholder details."
	fingerprintLength   = 6
)

var degradedLocations = []string{
	"Lisbon, Portugal",
	"Palermo, Italy",
	"Berlin, Germany",
	"Chiang Mai, Thailand",
	"Medellín, Colombia",
	"Cape Town, South Africa",
	"Bali, Indonesia",
	"Mexico City, Mexico",
}

var degradedAmenities = []string{"WiFi", "Workspace", "Kitchen", "Community Events"}

// Degraded synthesizes the placeholder record for raw. The output depends
// only on raw: repeated calls return equal values with equal JSON encodings.
func Degraded(raw string) ResolvedMetadata {
	amenities := make([]string, len(degradedAmenities))
	copy(amenities, degradedAmenities)

	return ResolvedMetadata{
		Name:        degradedNamePrefix + hashutil.Fingerprint(raw, fingerprintLength),
		Location:    degradedLocations[int(hashutil.FingerprintByte(raw))%len(degradedLocations)],
		Description: degradedDescription,
		Amenities:   amenities,
		Source:      SourceDegraded,
		Cid:         raw,
	}
}
