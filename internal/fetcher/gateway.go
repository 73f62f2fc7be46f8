package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
	"golang.org/x/net/http2"
)

/*
Responsibilities

- Perform one HTTP GET against one candidate URL
- Enforce the per-attempt deadline on the whole exchange
- Attach the endpoint's auth header, and only that endpoint's
- Decode br/gzip bodies and bound the decoded size
- Classify failures

Fetch Semantics

- The deadline is carried by the request context, so expiry aborts the
  in-flight connection and body read
- Any non-2xx status is a failure; the body is drained and closed
- No retries

The fetcher never parses content; it only returns bytes and metadata.
*/

type GatewayFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	maxBodyBytes int64
}

func NewGatewayFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	maxBodyBytes int64,
) *GatewayFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &GatewayFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		maxBodyBytes: maxBodyBytes,
	}
}

// NewHTTPClient returns a client whose transport negotiates HTTP/2 and leaves
// content decoding to the fetcher. It has no client-wide timeout; deadlines
// are set per attempt.
func NewHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2 transport: %w", err)
	}
	return &http.Client{Transport: transport}, nil
}

func (g *GatewayFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "GatewayFetcher.Fetch"
	startTime := time.Now()

	result, err := g.performFetch(ctx, fetchParam)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	var sizeBytes int
	if err != nil {
		statusCode = err.StatusCode
	} else {
		statusCode = result.Code()
		contentType = result.ContentType()
		sizeBytes = len(result.Body())
	}

	g.metadataSink.RecordFetch(
		fetchParam.target.URL,
		statusCode,
		duration,
		contentType,
		sizeBytes,
	)

	if err != nil {
		g.recordFetchError(callerMethod, fetchParam, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (g *GatewayFetcher) recordFetchError(callerMethod string, fetchParam FetchParam, err *FetchError) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, fetchParam.target.URL),
	}
	if gw := fetchParam.target.Gateway(); gw != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrGateway, gw))
	}
	if err.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprintf("%d", err.StatusCode)))
	}
	g.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(err),
		err.Message,
		attrs,
	)
}

func (g *GatewayFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, *FetchError) {
	attemptCtx, cancel := context.WithTimeout(ctx, fetchParam.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fetchParam.target.URL, nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent) {
		req.Header.Set(key, value)
	}
	fetchParam.target.Apply(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if fetchErr := contextError(ctx, attemptCtx, fetchParam.timeout); fetchErr != nil {
			return FetchResult{}, fetchErr
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseTransport,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("gateway responded with status %d", resp.StatusCode),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Cause:      ErrCauseHttpStatus,
			StatusCode: resp.StatusCode,
		}
	}

	decoded, closeDecoder, fetchErr := decodeBody(resp)
	if fetchErr != nil {
		return FetchResult{}, fetchErr
	}
	defer closeDecoder()

	body, err := io.ReadAll(io.LimitReader(decoded, g.maxBodyBytes+1))
	if err != nil {
		if fetchErr := contextError(ctx, attemptCtx, fetchParam.timeout); fetchErr != nil {
			return FetchResult{}, fetchErr
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	if int64(len(body)) > g.maxBodyBytes {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("response body exceeds %d bytes", g.maxBodyBytes),
			Retryable: false,
			Cause:     ErrCauseBodyTooLarge,
		}
	}

	return FetchResult{
		url:  fetchParam.target.URL,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			contentType:         resp.Header.Get("Content-Type"),
			transferredSizeByte: uint64(len(body)),
		},
	}, nil
}

// contextError distinguishes the attempt deadline from a cancelled caller.
// It returns nil when neither context is done.
func contextError(parent context.Context, attempt context.Context, timeout time.Duration) *FetchError {
	if parent.Err() != nil {
		return &FetchError{
			Message:   fmt.Sprintf("caller cancelled the attempt: %v", context.Cause(parent)),
			Retryable: false,
			Cause:     ErrCauseCanceled,
		}
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &FetchError{
			Message:   fmt.Sprintf("no complete response within %s", timeout),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return nil
}

// decodeBody wraps the response body according to Content-Encoding.
func decodeBody(resp *http.Response) (io.Reader, func(), *FetchError) {
	noop := func() {}
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return resp.Body, noop, nil
	case "br":
		return brotli.NewReader(resp.Body), noop, nil
	case "gzip", "x-gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, noop, &FetchError{
				Message:   fmt.Sprintf("invalid gzip stream: %v", err),
				Retryable: false,
				Cause:     ErrCauseContentEncoding,
			}
		}
		return reader, func() { _ = reader.Close() }, nil
	default:
		return nil, noop, &FetchError{
			Message:   fmt.Sprintf("unsupported content encoding %q", encoding),
			Retryable: false,
			Cause:     ErrCauseContentEncoding,
		}
	}
}

func requestHeaders(userAgent string) map[string]string {
	headers := map[string]string{
		"Accept":          "application/json, */*;q=0.8",
		"Accept-Encoding": "br, gzip",
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}
	return headers
}
