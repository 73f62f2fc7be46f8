package resolver_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/fetcher"
	"github.com/rohmanhakim/listing-enricher/internal/gateway"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	cidV0        = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	cidV1        = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
	primaryBase  = "https://primary.example.com/ipfs"
	fallbackBase = "https://ipfs.io/ipfs"
)

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, fetchParam)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// targetURL matches a FetchParam by the URL it points at
func targetURL(url string) any {
	return mock.MatchedBy(func(p fetcher.FetchParam) bool {
		return p.Target().URL == url
	})
}

// targetContaining matches a FetchParam whose URL contains fragment
func targetContaining(fragment string) any {
	return mock.MatchedBy(func(p fetcher.FetchParam) bool {
		return strings.Contains(p.Target().URL, fragment)
	})
}

func setupFetchSuccess(m *fetcherMock, matcher any, body string) {
	result := fetcher.NewFetchResultForTest("", []byte(body), 200, "application/json")
	m.On("Fetch", mock.Anything, matcher).Return(result, nil)
}

func setupFetchError(m *fetcherMock, matcher any, cause fetcher.FetchErrorCause, status int) {
	m.On("Fetch", mock.Anything, matcher).Return(fetcher.FetchResult{}, &fetcher.FetchError{
		Message:    "test failure",
		Retryable:  true,
		Cause:      cause,
		StatusCode: status,
	})
}

func newGateways(t *testing.T, bases ...string) *gateway.Resolver {
	t.Helper()
	if len(bases) == 0 {
		bases = []string{primaryBase, fallbackBase}
	}
	endpoints := make([]gateway.Endpoint, len(bases))
	for i, base := range bases {
		endpoints[i] = gateway.Endpoint{BaseURL: base}
	}
	resolver, err := gateway.NewResolver(endpoints)
	require.NoError(t, err)
	return resolver
}

// recordingSink is a concurrency-safe test double for metadata.MetadataSink
type recordingSink struct {
	metadata.NoopSink

	mu          sync.Mutex
	warnings    []string
	errors      []metadata.ErrorCause
	resolutions map[string]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{resolutions: make(map[string]string)}
}

func (s *recordingSink) RecordWarning(observedAt time.Time, packageName string, action string, details string, attrs []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, details)
}

func (s *recordingSink) RecordError(observedAt time.Time, packageName string, action string, cause metadata.ErrorCause, details string, attrs []metadata.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, cause)
}

func (s *recordingSink) RecordResolution(identifier string, source string, attempts int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[identifier] = source
}

func (s *recordingSink) warningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warnings)
}
