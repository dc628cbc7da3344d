package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// CallPrice calculates the price of a European call option using the Black-Scholes model.
//
// Parameters:
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual, continuously compounded)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical call price, or an error wrapping ErrInvalidInput when S, K, T or sigma
//	is non-positive, any argument is not a finite number, or an intermediate term overflows.
//	The model is undefined there, so no intrinsic-value fallback is attempted.
func CallPrice(
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) (float64, error) {

	d1, d2, err := dTerms(S, K, T, r, sigma)
	if err != nil {
		return 0, err
	}

	price := S*normCDF(d1) - DiscountedStrike(K, T, r)*normCDF(d2)
	if !isFinite(price) {
		return 0, fmt.Errorf("%w: call price is not finite (%v)", ErrInvalidInput, price)
	}
	return price, nil
}

// CallVega calculates the vega of a European call option using the Black-Scholes model.
// Vega measures the sensitivity of the option price to changes in the underlying asset's volatility.
//
// Parameters:
//   - S: Current price of the underlying asset
//   - K: Strike price of the option
//   - T: Time to expiration in years
//   - r: Risk-free interest rate
//   - sigma: Volatility (standard deviation) of the underlying asset's returns
//
// Returns:
//
//	The vega value, i.e. the change in option price per unit (not per 1%) change in volatility.
//	Inputs are validated exactly as in CallPrice.
func CallVega(
	S float64,
	K float64,
	T float64,
	r float64,
	sigma float64,
) (float64, error) {

	d1, _, err := dTerms(S, K, T, r, sigma)
	if err != nil {
		return 0, err
	}

	vega := S * normPDF(d1) * math.Sqrt(T)
	if !isFinite(vega) {
		return 0, fmt.Errorf("%w: vega is not finite (%v)", ErrInvalidInput, vega)
	}
	return vega, nil
}

// dTerms returns d1 and d2. Price and vega share it so both use
// d1 = (ln(S/K) + (r + σ²/2)T) / (σ√T).
// Inputs whose intermediate terms overflow are rejected with ErrInvalidInput.
func dTerms(S, K, T, r, sigma float64) (d1, d2 float64, err error) {
	if err := validateModelInputs(S, K, T, r, sigma); err != nil {
		return 0, 0, err
	}

	variance := sigma * sigma * T
	if !isFinite(variance) {
		return 0, 0, fmt.Errorf("%w: variance σ²T overflows for volatility %v", ErrInvalidInput, sigma)
	}

	sqrtT := math.Sqrt(T)
	d1 = (math.Log(S/K) + r*T + 0.5*variance) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	if !isFinite(d1) || !isFinite(d2) {
		return 0, 0, fmt.Errorf("%w: d1=%v d2=%v are not finite", ErrInvalidInput, d1, d2)
	}
	return d1, d2, nil
}

func validateModelInputs(S, K, T, r, sigma float64) error {
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"spot", S},
		{"strike", K},
		{"expiry", T},
		{"rate", r},
		{"volatility", sigma},
	} {
		if !isFinite(p.value) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrInvalidInput, p.name, p.value)
		}
	}

	switch {
	case S <= 0:
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidInput, S)
	case K <= 0:
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInput, K)
	case T <= 0:
		return fmt.Errorf("%w: expiry must be positive, got %v", ErrInvalidInput, T)
	case sigma <= 0:
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInput, sigma)
	case !isFinite(DiscountedStrike(K, T, r)):
		return fmt.Errorf("%w: discount factor overflows for rate %v and expiry %v", ErrInvalidInput, r, T)
	}
	return nil
}

// DiscountedStrike returns K·e^(−rT).
func DiscountedStrike(K, T, r float64) float64 {
	return K * math.Exp(-r*T)
}

// CallBounds returns the no-arbitrage interval (max(0, S − K·e^(−rT)), S) for a call price.
func CallBounds(S, K, T, r float64) (lower, upper float64) {
	return math.Max(0, S-DiscountedStrike(K, T, r)), S
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
