package pricing

import "errors"

// ErrInvalidInput reports model parameters outside the domain of the Black-Scholes formula:
// non-positive spot, strike, expiry or volatility, a negative observed price, or a non-finite value.
var ErrInvalidInput = errors.New("invalid input")
