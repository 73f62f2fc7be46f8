package metadata

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for fallback or degradation decisions.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - Gateway timeouts
  - DNS resolution failures
  - Connection resets
  - Non-2xx gateway responses

# CauseContentInvalid

Meaning:
  - Content was fetched but could not be processed meaningfully.

Examples:
  - Body is not a JSON object
  - Unsupported content encoding
  - Body larger than the configured limit

# CauseSourceFailure

Meaning:
  - The event source could not supply event collections.

# CauseStorageFailure

Meaning:
  - Failure while persisting snapshots.

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseContentInvalid
	CauseSourceFailure
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseSourceFailure:
		return "source_failure"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL         AttributeKey = "url"
	AttrGateway     AttributeKey = "gateway"
	AttrIdentifier  AttributeKey = "identifier"
	AttrListingID   AttributeKey = "listing_id"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrSource      AttributeKey = "source"
	AttrPassID      AttributeKey = "pass_id"
	AttrMessage     AttributeKey = "message"
	AttrWritePath   AttributeKey = "write_path"
	AttrContentHash AttributeKey = "content_hash"
	AttrEntries     AttributeKey = "entries"
)

type ArtifactKind string

const (
	ArtifactListingSnapshot ArtifactKind = "listing_snapshot"
	ArtifactResolutionDump  ArtifactKind = "resolution_dump"
)

// passStats is the terminal, derived summary of one resolution pass.
type passStats struct {
	passID           string
	totalListings    int
	totalIdentifiers int
	degraded         int
	durationMs       int64
}
