package impliedvol

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// bracket is the bisection search state.
type bracket struct {
	low, high, estimate float64
}

func (b *bracket) midpoint() {
	b.estimate = 0.5 * (b.low + b.high)
}

// Bisection solves for implied volatility by bisecting [cfg.BracketLow, cfg.BracketHigh],
// starting at cfg.BisectionStart.
//
// When the model price is below the observed price and even the upper bound prices
// below it, the upper bound is doubled before the lower bound moves up, so volatilities
// above the initial ceiling are still reached. Call prices increase strictly in σ, which
// keeps the search monotone.
//
// Reaching cfg.MaxIterations is not an error: the last estimate is returned with
// Converged=false. The same happens when the bracket collapses to adjacent floats or
// expands past the largest volatility the model can price.
func Bisection(q pricing.Quote, cfg Config) (Result, error) {
	res := Result{Method: MethodBisection}
	if err := checkInputs(q, cfg); err != nil {
		return res, err
	}

	b := bracket{low: cfg.BracketLow, high: cfg.BracketHigh, estimate: cfg.BisectionStart}
	for i := 0; i < cfg.MaxIterations; i++ {
		price, err := q.CallPrice(b.estimate)
		if err != nil {
			if i == 0 {
				return res, fmt.Errorf("bisection iteration %d: %w", i+1, err)
			}
			logger.Debugf("bisection stopped, model undefined at sigma=%.6g: %v", b.estimate, err)
			return notConverged(res), nil
		}

		diff := price - q.Price
		res.Volatility, res.Residual, res.Iterations = b.estimate, diff, i+1
		logger.Tracef("bisection iter=%d [%.6f, %.6f] sigma=%.8f diff=%.3e", i+1, b.low, b.high, b.estimate, diff)

		if math.Abs(diff) < cfg.Tolerance {
			res.Converged = true
			return res, nil
		}

		switch {
		case diff < 0:
			highPrice, err := q.CallPrice(b.high)
			if err != nil {
				// the model cannot be evaluated any higher
				logger.Debugf("bisection cannot expand past %.6g: %v", b.high, err)
				return notConverged(res), nil
			}
			if highPrice < q.Price {
				b.high *= 2
				res.Expansions++
				logger.Debugf("bisection bracket expanded to [%.6f, %.6f]", b.estimate, b.high)
			}
			b.low = b.estimate
			b.midpoint()
		case diff > 0:
			b.high = b.estimate
			b.midpoint()
		}

		// the midpoint no longer lies strictly inside the bracket
		if b.estimate <= b.low || b.estimate >= b.high {
			logger.Debugf("bisection bracket collapsed at sigma=%.6g", b.estimate)
			return notConverged(res), nil
		}
	}

	return notConverged(res), nil
}

func notConverged(res Result) Result {
	logger.Warnf("bisection did not converge in %d iterations: sigma=%.6f residual=%.3e", res.Iterations, res.Volatility, res.Residual)
	return res
}
