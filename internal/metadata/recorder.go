package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Metadata Collected
- Gateway fetch attempts (URL, status, duration, size)
- Resolution outcomes per identifier (network or degraded)
- Classified errors and warnings
- Per-pass summaries

Determinism guarantees:
 - Metadata does not affect control flow
 - Degradation decisions never read metadata
 - Output of the pipeline is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence resolution decisions.
*/

/*
Recorder renders structured events to a slog logger and counts them in
prometheus collectors.
Ordering guarantees:
- Events from one goroutine are recorded in the order they are received.
- No global ordering across concurrent resolutions is guaranteed.
*/
type Recorder struct {
	workerId string
	logger   *slog.Logger
	metrics  *recorderMetrics
}

// NewRecorder creates a Recorder. A nil logger discards log output;
// a nil registerer keeps metrics unregistered.
func NewRecorder(workerId string, logger *slog.Logger, registerer prometheus.Registerer) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		workerId: workerId,
		logger:   logger.With(slog.String("worker", workerId)),
		metrics:  newRecorderMetrics(registerer),
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	r.metrics.errors.WithLabelValues(packageName, cause.String()).Inc()
	r.logger.LogAttrs(context.Background(), slog.LevelError, errorString,
		append([]slog.Attr{
			slog.Time("observed_at", observedAt),
			slog.String("package", packageName),
			slog.String("action", action),
			slog.String("cause", cause.String()),
		}, toSlogAttrs(attrs)...)...,
	)
}

func (r *Recorder) RecordWarning(
	observedAt time.Time,
	packageName string,
	action string,
	details string,
	attrs []Attribute,
) {
	r.metrics.warnings.WithLabelValues(packageName).Inc()
	r.logger.LogAttrs(context.Background(), slog.LevelWarn, details,
		append([]slog.Attr{
			slog.Time("observed_at", observedAt),
			slog.String("package", packageName),
			slog.String("action", action),
		}, toSlogAttrs(attrs)...)...,
	)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	sizeBytes int,
) {
	r.metrics.fetches.WithLabelValues(statusClass(httpStatus)).Inc()
	r.metrics.fetchDuration.Observe(duration.Seconds())
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, "gateway fetch",
		slog.String(string(AttrURL), fetchUrl),
		slog.Int(string(AttrHTTPStatus), httpStatus),
		slog.Duration("duration", duration),
		slog.String("content_type", contentType),
		slog.Int("size_bytes", sizeBytes),
	)
}

func (r *Recorder) RecordResolution(identifier string, source string, attempts int, duration time.Duration) {
	r.metrics.resolutions.WithLabelValues(source).Inc()
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "identifier resolved",
		slog.String(string(AttrIdentifier), identifier),
		slog.String(string(AttrSource), source),
		slog.Int("attempts", attempts),
		slog.Duration("duration", duration),
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	r.metrics.artifacts.WithLabelValues(string(kind)).Inc()
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "artifact written",
		append([]slog.Attr{
			slog.String("kind", string(kind)),
			slog.String(string(AttrWritePath), path),
		}, toSlogAttrs(attrs)...)...,
	)
}

/*
RecordFinalPassStats records the derived summary of a completed merge pass.

Contract:
  - MUST be called at most once per pass, after every listing was built.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordFinalPassStats(
	passID string,
	totalListings int,
	totalIdentifiers int,
	degraded int,
	duration time.Duration,
) {
	stats := passStats{
		passID:           passID,
		totalListings:    totalListings,
		totalIdentifiers: totalIdentifiers,
		degraded:         degraded,
		durationMs:       duration.Milliseconds(),
	}
	r.append(stats)
}

func (r *Recorder) append(stats passStats) {
	r.metrics.passes.Inc()
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "merge pass finished",
		slog.String(string(AttrPassID), stats.passID),
		slog.Int("listings", stats.totalListings),
		slog.Int("identifiers", stats.totalIdentifiers),
		slog.Int("degraded", stats.degraded),
		slog.Int64("duration_ms", stats.durationMs),
	)
}

func toSlogAttrs(attrs []Attribute) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, slog.String(string(attr.Key), attr.Value))
	}
	return out
}
