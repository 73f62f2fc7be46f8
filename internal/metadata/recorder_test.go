package metadata

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, *bytes.Buffer, *prometheus.Registry) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	return NewRecorder("test-worker", logger, reg), buf, reg
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestRecorder_RecordError(t *testing.T) {
	rec, buf, _ := newTestRecorder(t)

	rec.RecordError(
		time.Unix(1700000000, 0),
		"fetcher",
		"GatewayFetcher.Fetch",
		CauseNetworkFailure,
		"fetcher error: timeout",
		[]Attribute{NewAttr(AttrURL, "https://gw.example/ipfs/bafy")},
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "fetcher error: timeout", lines[0]["msg"])
	assert.Equal(t, "fetcher", lines[0]["package"])
	assert.Equal(t, "network_failure", lines[0]["cause"])
	assert.Equal(t, "https://gw.example/ipfs/bafy", lines[0]["url"])
	assert.Equal(t, "test-worker", lines[0]["worker"])

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.errors.WithLabelValues("fetcher", "network_failure")))
}

func TestRecorder_RecordWarning(t *testing.T) {
	rec, buf, _ := newTestRecorder(t)

	rec.RecordWarning(time.Now(), "resolver", "Resolver.ResolveOne", "identifier is not a well-formed CID",
		[]Attribute{NewAttr(AttrIdentifier, "invalid-cid-123")})

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "invalid-cid-123", lines[0]["identifier"])
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.warnings.WithLabelValues("resolver")))
}

func TestRecorder_RecordFetchAndResolution(t *testing.T) {
	rec, buf, reg := newTestRecorder(t)

	rec.RecordFetch("https://gw.example/ipfs/bafy", 504, 20*time.Millisecond, "", 0)
	rec.RecordFetch("https://fallback.example/ipfs/bafy", 200, 30*time.Millisecond, "application/json", 42)
	rec.RecordFetch("https://down.example/ipfs/bafy", 0, time.Millisecond, "", 0)
	rec.RecordResolution("bafy", "network", 2, 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.fetches.WithLabelValues("5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.fetches.WithLabelValues("2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.fetches.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.resolutions.WithLabelValues("network")))

	count, err := testutil.GatherAndCount(reg, "listing_enricher_gateway_fetch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)
	assert.Equal(t, "identifier resolved", lines[3]["msg"])
	assert.Equal(t, "network", lines[3]["source"])
}

func TestRecorder_RecordFinalPassStats(t *testing.T) {
	rec, buf, _ := newTestRecorder(t)

	rec.RecordFinalPassStats("pass-1", 3, 2, 1, 1500*time.Millisecond)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "pass-1", lines[0]["pass_id"])
	assert.Equal(t, float64(1500), lines[0]["duration_ms"])
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.metrics.passes))
}

func TestRecorder_NilLoggerAndRegisterer(t *testing.T) {
	rec := NewRecorder("quiet", nil, nil)
	assert.NotPanics(t, func() {
		rec.RecordError(time.Now(), "p", "a", CauseUnknown, "e", nil)
		rec.RecordArtifact(ArtifactListingSnapshot, "/tmp/x.json", nil)
	})
}

func TestErrorCause_String(t *testing.T) {
	assert.Equal(t, "unknown", CauseUnknown.String())
	assert.Equal(t, "content_invalid", CauseContentInvalid.String())
	assert.Equal(t, "unknown", ErrorCause(99).String())
}
