package identifier

type Version string

const (
	VersionV0      Version = "v0"
	VersionV1      Version = "v1"
	VersionUnknown Version = "unknown"
)

// Classification is the outcome of Validate.
//
// An ill-formed identifier is a normal outcome, not an error: WellFormed is
// false and Version is VersionUnknown. Absolute http(s) URLs are reported
// with AbsoluteURL set; they are fetched as-is instead of through gateways.
type Classification struct {
	WellFormed  bool
	Version     Version
	AbsoluteURL bool
	// Normalized is the identifier with any scheme prefix removed.
	// For absolute URLs it is the input unchanged.
	Normalized string
}

// Details describes a decoded content identifier.
type Details struct {
	Version      uint64
	Codec        uint64
	HashFunction string
	DigestLength int
}
