package resolver

import "errors"

var (
	ErrNilGateways = errors.New("resolver requires a gateway resolver")
	ErrNilFetcher  = errors.New("resolver requires a fetcher")
)
