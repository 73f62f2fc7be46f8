package fetcher

import (
	"time"

	"github.com/rohmanhakim/listing-enricher/internal/gateway"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 4 << 20
)

// HTTP boundary

type FetchParam struct {
	target    gateway.Target
	userAgent string
	timeout   time.Duration
}

// NewFetchParam builds the parameters of one attempt. A non-positive
// timeout falls back to DefaultTimeout.
func NewFetchParam(target gateway.Target, userAgent string, timeout time.Duration) FetchParam {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return FetchParam{
		target:    target,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (p FetchParam) Target() gateway.Target {
	return p.target
}

func (p FetchParam) Timeout() time.Duration {
	return p.timeout
}

type FetchResult struct {
	url  string
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() string {
	return f.url
}

// Body is the decoded response body.
func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

type ResponseMeta struct {
	statusCode          int
	contentType         string
	transferredSizeByte uint64
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url string,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
		},
	}
}
