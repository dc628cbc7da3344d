package impliedvol

import (
	"errors"

	"github.com/contactkeval/option-iv/internal/pricing"
)

var (
	// ErrInvalidInput is pricing.ErrInvalidInput, re-exported for callers of this package.
	ErrInvalidInput = pricing.ErrInvalidInput

	// ErrApproximationOutOfDomain is returned by Approximate when the Hallerbach
	// discriminant is negative or the formula yields no positive volatility.
	ErrApproximationOutOfDomain = errors.New("approximation out of domain")

	// ErrDivergence is returned by Newton when vega vanishes or an iterate leaves
	// the range (0, MaxVolatility].
	ErrDivergence = errors.New("newton iteration diverged")

	// ErrNonConvergence is what Result.Err reports when the iteration cap was hit.
	// The solvers never return it themselves.
	ErrNonConvergence = errors.New("iteration cap reached without convergence")
)
