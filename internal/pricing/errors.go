package pricing

import (
	"fmt"

	"github.com/jewelcraft/metalpricing/internal/platform/httpx"
)

// Sentinel errors returned by Calculate.
var (
	ErrNoActiveRates          = fmt.Errorf("%w: metal rates have not been set, please configure rates first", httpx.ErrPrecondition)
	ErrUnsupportedCombination = fmt.Errorf("%w", httpx.ErrUnsupported)
	ErrInvalidInput           = fmt.Errorf("%w", httpx.ErrInvalidInput)
)

// UnsupportedCombinationError names the metal/purity pair with no rate.
type UnsupportedCombinationError struct {
	Metal  string
	Purity string
}

func (e *UnsupportedCombinationError) Error() string {
	return fmt.Sprintf("unsupported metal/purity combination: %q / %q", e.Metal, e.Purity)
}

func (e *UnsupportedCombinationError) Unwrap() error { return ErrUnsupportedCombination }

// InvalidInputError names the offending numeric field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ErrRateNotConfigured is returned when the selected rate is zero, which only
// happens for the optional platinum rate.
var ErrRateNotConfigured = fmt.Errorf("%w: rate for this metal is not configured", httpx.ErrPrecondition)
