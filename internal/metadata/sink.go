package metadata

import "time"

/*
MetadataSink captures structured pipeline events.
It must not:
- perform I/O decisions
- affect control flow
- impose a logging backend on the emitting component

Implementations must be safe for concurrent use: the batch resolver
records from one goroutine per identifier.
*/
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordWarning(
		observedAt time.Time,
		packageName string,
		action string,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		sizeBytes int,
	)

	RecordResolution(
		identifier string,
		source string,
		attempts int,
		duration time.Duration,
	)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// PassFinalizer receives the summary of a finished merge pass.
// It MUST be called at most once per pass, after every listing was built.
type PassFinalizer interface {
	RecordFinalPassStats(
		passID string,
		totalListings int,
		totalIdentifiers int,
		degraded int,
		duration time.Duration,
	)
}

// NoopSink, struct that implements MetadataSink and PassFinalizer but does nothing.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordWarning(
	observedAt time.Time,
	packageName string,
	action string,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	sizeBytes int,
) {
}

func (n *NoopSink) RecordResolution(identifier string, source string, attempts int, duration time.Duration) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordFinalPassStats(
	passID string,
	totalListings int,
	totalIdentifiers int,
	degraded int,
	duration time.Duration,
) {
}
