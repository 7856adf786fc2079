package aggregation

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable is matched by every error caused by a failed remote fetch.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamError records which remote call failed. The whole aggregation request fails
// with it; the engine never retries.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUpstreamUnavailable) hold for any UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
