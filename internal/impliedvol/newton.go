package impliedvol

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// minVega is the smallest slope Newton will divide by.
const minVega = 1e-12

// Newton solves for implied volatility with Newton-Raphson steps on the analytic vega.
//
// Starting from cfg.InitialGuess, each iteration prices the call, stops when the
// residual is below cfg.Tolerance, and otherwise moves σ by −residual/vega.
//
// Returns:
//   - a converged Result on success
//   - a Result with Converged=false after cfg.MaxIterations (not an error; see Result.Err)
//   - ErrDivergence when vega vanishes, an iterate is non-finite, non-positive
//     or above cfg.MaxVolatility, or the model cannot be evaluated at an iterate;
//     the Result then holds the last evaluated iterate
//   - ErrInvalidInput for an invalid quote or configuration
func Newton(q pricing.Quote, cfg Config) (Result, error) {
	res := Result{Method: MethodNewton}
	if err := checkInputs(q, cfg); err != nil {
		return res, err
	}

	sigma := cfg.InitialGuess
	for i := 0; i < cfg.MaxIterations; i++ {
		price, err := q.CallPrice(sigma)
		if err != nil {
			if i == 0 {
				return res, fmt.Errorf("newton iteration %d: %w", i+1, err)
			}
			return res, fmt.Errorf("%w: model undefined at sigma %.6g: %v", ErrDivergence, sigma, err)
		}

		diff := price - q.Price
		res.Volatility, res.Residual, res.Iterations = sigma, diff, i+1
		logger.Tracef("newton iter=%d sigma=%.8f diff=%.3e", i+1, sigma, diff)

		if math.Abs(diff) < cfg.Tolerance {
			res.Converged = true
			return res, nil
		}

		vega, err := q.Vega(sigma)
		if err != nil {
			return res, fmt.Errorf("newton iteration %d: %w", i+1, err)
		}
		if vega < minVega {
			return res, fmt.Errorf("%w: vega %.3e at sigma %.6f", ErrDivergence, vega, sigma)
		}

		next := sigma - diff/vega
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= 0 || next > cfg.MaxVolatility {
			return res, fmt.Errorf("%w: step from sigma %.6f to %.6f", ErrDivergence, sigma, next)
		}
		sigma = next
	}

	logger.Warnf("newton did not converge in %d iterations: sigma=%.6f residual=%.3e", res.Iterations, res.Volatility, res.Residual)
	return res, nil
}

func checkInputs(q pricing.Quote, cfg Config) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !q.WithinBounds() {
		lower, upper := q.Bounds()
		logger.Debugf("price %.6f outside no-arbitrage bounds (%.6f, %.6f)", q.Price, lower, upper)
	}
	return nil
}
