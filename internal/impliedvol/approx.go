package impliedvol

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-iv/internal/pricing"
)

// hallerbachCoefficient weights the moneyness correction term.
const hallerbachCoefficient = 1.85

// Approximate returns Hallerbach's closed-form estimate of implied volatility:
//
//	X = K·e^(−rT)
//	σ = (1/√T)·(√(2π)/(2(S+X)))·[(2C+X−S) + √((2C+X−S)² − 1.85·(S+X)(X−S)²/(π·√(XS)))]
//
// It is meant as a quick starting point or cross-check, not a tolerance-level answer.
// A negative discriminant, or a formula value that is not a positive finite number,
// yields ErrApproximationOutOfDomain.
func Approximate(q pricing.Quote) (Result, error) {
	res := Result{Method: MethodApprox}
	if err := q.Validate(); err != nil {
		return res, err
	}

	S, C, T := q.Spot, q.Price, q.Expiry
	X := pricing.DiscountedStrike(q.Strike, T, q.Rate)

	a := 2*C + X - S
	disc := a*a - hallerbachCoefficient*(S+X)*(X-S)*(X-S)/(math.Pi*math.Sqrt(X*S))
	if disc < 0 {
		return res, fmt.Errorf("%w: discriminant %.6g is negative", ErrApproximationOutOfDomain, disc)
	}

	sigma := (1 / math.Sqrt(T)) * (math.Sqrt(2*math.Pi) / (2 * (S + X))) * (a + math.Sqrt(disc))
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma <= 0 {
		return res, fmt.Errorf("%w: estimate %v is not a positive volatility", ErrApproximationOutOfDomain, sigma)
	}

	price, err := q.CallPrice(sigma)
	if err != nil {
		return res, err
	}

	res.Volatility = sigma
	res.Residual = price - C
	res.Converged = true
	return res, nil
}
