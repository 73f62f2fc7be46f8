package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrNoGateways     = errors.New("at least one gateway is required")
	ErrInvalidGateway = errors.New("gateway base must be an absolute http(s) URL")
)

func invalidGateway(base string, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidGateway, base, reason)
}
