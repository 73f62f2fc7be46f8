package resolver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/cache"
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/fetcher"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/internal/resolver"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, sink metadata.MetadataSink, f fetcher.Fetcher, opts resolver.Options) *resolver.Resolver {
	t.Helper()
	r, err := resolver.NewResolver(sink, newGateways(t), f, opts)
	require.NoError(t, err)
	return r
}

func TestNewResolver_RequiresDependencies(t *testing.T) {
	_, err := resolver.NewResolver(&metadata.NoopSink{}, nil, new(fetcherMock), resolver.DefaultOptions())
	assert.ErrorIs(t, err, resolver.ErrNilGateways)

	_, err = resolver.NewResolver(&metadata.NoopSink{}, newGateways(t), nil, resolver.DefaultOptions())
	assert.ErrorIs(t, err, resolver.ErrNilFetcher)
}

func TestResolveOne_PrimaryGatewayTimesOutFallbackServes(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer primary.Close()

	fallbackPaths := make(chan string, 1)
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackPaths <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Hacker House Palermo"}`))
	}))
	defer fallback.Close()

	gateways, err := gateway.NewResolver([]gateway.Endpoint{
		{BaseURL: primary.URL + "/ipfs", AuthHeader: "Bearer secret"},
		{BaseURL: fallback.URL + "/ipfs"},
	})
	require.NoError(t, err)

	sink := newRecordingSink()
	f := fetcher.NewGatewayFetcher(sink, &http.Client{}, 0)
	r, err := resolver.NewResolver(sink, gateways, f, resolver.DefaultOptions())
	require.NoError(t, err)

	got := r.ResolveOne(context.Background(), cidV1)

	assert.Equal(t, content.SourceNetwork, got.Source)
	assert.Equal(t, "Hacker House Palermo", got.Name)
	assert.Equal(t, fallback.URL+"/ipfs", got.Gateway)
	assert.Equal(t, cidV1, got.Cid)
	assert.Equal(t, "/ipfs/"+cidV1, <-fallbackPaths)

	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"network","name":"Hacker House Palermo"}`, string(encoded))
	assert.Contains(t, sink.errors, metadata.CauseNetworkFailure)
}

func TestResolveOne_IllFormedSkipsNetwork(t *testing.T) {
	m := new(fetcherMock)
	sink := newRecordingSink()
	r := newResolver(t, sink, m, resolver.DefaultOptions())

	got := r.ResolveOne(context.Background(), "invalid-cid-123")

	m.AssertNumberOfCalls(t, "Fetch", 0)
	assert.Equal(t, content.SourceDegraded, got.Source)
	assert.True(t, strings.HasPrefix(got.Name, "Hacker House"))
	assert.Equal(t, 1, sink.warningCount())
	assert.Empty(t, sink.errors)
	assert.Equal(t, "degraded", sink.resolutions["invalid-cid-123"])
}

func TestResolveOne_NeverPanics(t *testing.T) {
	m := new(fetcherMock)
	setupFetchError(m, mock.Anything, fetcher.ErrCauseTransport, 0)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.DefaultOptions())

	inputs := []string{
		"",
		strings.Repeat("\xff garbage ", 1000)[:10000],
		cidV0,
		cidV1,
		"ipfs://" + cidV1,
		"https://unreachable.invalid/listing.json",
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			got := r.ResolveOne(context.Background(), input)
			assert.Equal(t, content.SourceDegraded, got.Source)
			assert.True(t, strings.HasPrefix(got.Name, "Hacker House "))
		})
	}
}

func TestResolveOne_UnreachableIsIdempotent(t *testing.T) {
	m := new(fetcherMock)
	setupFetchError(m, mock.Anything, fetcher.ErrCauseTimeout, 0)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.DefaultOptions())

	first, err := json.Marshal(r.ResolveOne(context.Background(), cidV1))
	require.NoError(t, err)
	second, err := json.Marshal(r.ResolveOne(context.Background(), cidV1))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// two gateways, two passes
	m.AssertNumberOfCalls(t, "Fetch", 4)
}

func TestResolveOne_PrimaryWins(t *testing.T) {
	m := new(fetcherMock)
	setupFetchSuccess(m, targetURL(primaryBase+"/"+cidV0), `{"name":"Primary"}`)
	setupFetchSuccess(m, targetURL(fallbackBase+"/"+cidV0), `{"name":"Fallback"}`)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.DefaultOptions())

	got := r.ResolveOne(context.Background(), cidV0)

	assert.Equal(t, "Primary", got.Name)
	assert.Equal(t, primaryBase, got.Gateway)
	m.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestResolveOne_InvalidDocumentFallsThrough(t *testing.T) {
	m := new(fetcherMock)
	setupFetchSuccess(m, targetURL(primaryBase+"/"+cidV0), `<html>rate limited</html>`)
	setupFetchSuccess(m, targetURL(fallbackBase+"/"+cidV0), `{"name":"Fallback"}`)
	sink := newRecordingSink()
	r := newResolver(t, sink, m, resolver.DefaultOptions())

	got := r.ResolveOne(context.Background(), cidV0)

	assert.Equal(t, content.SourceNetwork, got.Source)
	assert.Equal(t, "Fallback", got.Name)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseContentInvalid}, sink.errors)
}

func TestResolveOne_AbsoluteURLFetchedDirectly(t *testing.T) {
	const direct = "https://cdn.example.com/listing-7.json"
	m := new(fetcherMock)
	setupFetchSuccess(m, targetURL(direct), `{"name":"Direct"}`)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.DefaultOptions())

	got := r.ResolveOne(context.Background(), direct)

	assert.Equal(t, "Direct", got.Name)
	assert.Empty(t, got.Gateway)
	m.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestResolveOne_PassesTimeoutAndUserAgent(t *testing.T) {
	m := new(fetcherMock)
	matcher := mock.MatchedBy(func(p fetcher.FetchParam) bool {
		return p.Timeout() == 250*time.Millisecond
	})
	setupFetchSuccess(m, matcher, `{"name":"Casa"}`)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.Options{Timeout: 250 * time.Millisecond, UserAgent: "test"})

	got := r.ResolveOne(context.Background(), cidV1)
	assert.Equal(t, "Casa", got.Name)
}

func TestResolveOne_CancelledContext(t *testing.T) {
	m := new(fetcherMock)
	c := cache.NewTTLCache(0, time.Minute)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.Options{Cache: c})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := r.ResolveOne(ctx, cidV1)

	assert.Equal(t, content.SourceDegraded, got.Source)
	m.AssertNumberOfCalls(t, "Fetch", 0)
	assert.Equal(t, 0, c.Len())
}

func TestResolveOne_CachesNetworkResultsOnly(t *testing.T) {
	m := new(fetcherMock)
	setupFetchSuccess(m, targetContaining(cidV0), `{"name":"Casa"}`)
	setupFetchError(m, targetContaining(cidV1), fetcher.ErrCauseHttpStatus, http.StatusBadGateway)

	c := cache.NewTTLCache(0, time.Minute)
	r := newResolver(t, &metadata.NoopSink{}, m, resolver.Options{Cache: c})

	for i := 0; i < 3; i++ {
		assert.Equal(t, "Casa", r.ResolveOne(context.Background(), cidV0).Name)
		assert.Equal(t, content.SourceDegraded, r.ResolveOne(context.Background(), cidV1).Source)
	}

	// one fetch for the cached identifier, two gateways per pass for the other
	m.AssertNumberOfCalls(t, "Fetch", 1+3*2)
	assert.Equal(t, 1, c.Len())

	cached, found := c.Get(cidV0)
	require.True(t, found)
	assert.Equal(t, content.SourceNetwork, cached.Source)
}

// panickingFetcher simulates a broken fetcher implementation
type panickingFetcher struct{}

func (panickingFetcher) Fetch(ctx context.Context, p fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	panic("boom")
}

func TestResolveOne_RecoversFromPanickingFetcher(t *testing.T) {
	sink := newRecordingSink()
	r := newResolver(t, sink, panickingFetcher{}, resolver.DefaultOptions())

	var got content.ResolvedMetadata
	require.NotPanics(t, func() {
		got = r.ResolveOne(context.Background(), cidV1)
	})
	assert.Equal(t, content.Degraded(cidV1), got)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseInvariantViolation}, sink.errors)
}

// firstCallBlocksFetcher holds its first request until that request's
// context is done; every later request succeeds.
type firstCallBlocksFetcher struct {
	calls   atomic.Int32
	started chan struct{}
}

func (f *firstCallBlocksFetcher) Fetch(ctx context.Context, p fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		<-ctx.Done()
		return fetcher.FetchResult{}, &fetcher.FetchError{
			Message: ctx.Err().Error(),
			Cause:   fetcher.ErrCauseCanceled,
		}
	}
	return fetcher.NewFetchResultForTest(p.Target().URL, []byte(`{"name":"Casa"}`), 200, "application/json"), nil
}

func TestResolveOne_CancelledCallerDoesNotDegradeConcurrentCaller(t *testing.T) {
	f := &firstCallBlocksFetcher{started: make(chan struct{})}
	c := cache.NewTTLCache(0, time.Minute)
	r := newResolver(t, &metadata.NoopSink{}, f, resolver.Options{Cache: c})

	cancelled, cancel := context.WithCancel(context.Background())
	first := make(chan content.ResolvedMetadata, 1)
	go func() {
		first <- r.ResolveOne(cancelled, cidV1)
	}()
	<-f.started

	second := make(chan content.ResolvedMetadata, 1)
	go func() {
		second <- r.ResolveOne(context.Background(), cidV1)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Equal(t, content.SourceDegraded, (<-first).Source)
	live := <-second
	assert.Equal(t, content.SourceNetwork, live.Source)
	assert.Equal(t, "Casa", live.Name)

	cached, found := c.Get(cidV1)
	require.True(t, found)
	assert.Equal(t, "Casa", cached.Name)
}

// blockingPanicFetcher panics once release is closed
type blockingPanicFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingPanicFetcher) Fetch(ctx context.Context, p fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	close(f.started)
	<-f.release
	panic("boom")
}

func TestResolveOne_PanicDuringSharedLoadIsRecovered(t *testing.T) {
	f := &blockingPanicFetcher{started: make(chan struct{}), release: make(chan struct{})}
	sink := newRecordingSink()
	c := cache.NewTTLCache(0, time.Minute)
	r := newResolver(t, sink, f, resolver.Options{Cache: c})

	results := make(chan content.ResolvedMetadata, 2)
	go func() {
		results <- r.ResolveOne(context.Background(), cidV1)
	}()
	<-f.started
	go func() {
		results <- r.ResolveOne(context.Background(), cidV1)
	}()
	// let the second caller wait on the shared load
	time.Sleep(20 * time.Millisecond)
	close(f.release)

	for i := 0; i < 2; i++ {
		select {
		case got := <-results:
			assert.Equal(t, content.Degraded(cidV1), got)
		case <-time.After(2 * time.Second):
			t.Fatal("resolution did not settle")
		}
	}
	assert.Equal(t, 0, c.Len())
}
