package impliedvol

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-iv/internal/pricing"
)

const (
	DefaultTolerance      = 1e-4
	DefaultMaxIterations  = 100
	DefaultInitialGuess   = 0.3
	DefaultBracketLow     = 0.0
	DefaultBracketHigh    = 1.0
	DefaultBisectionStart = 0.5
	DefaultMaxVolatility  = 10.0
)

// Config governs loop termination and starting points of the iterative solvers.
// The closed-form approximation ignores it.
type Config struct {
	// Tolerance is the absolute price residual below which a solver stops.
	Tolerance float64 `json:"tolerance" mapstructure:"tolerance"`
	// MaxIterations caps the iterations of Newton and bisection.
	MaxIterations int `json:"max_iterations" mapstructure:"max_iterations"`
	// InitialGuess is Newton's starting volatility.
	InitialGuess float64 `json:"initial_guess" mapstructure:"initial_guess"`
	// BracketLow and BracketHigh are the initial bisection bracket.
	// BracketHigh doubles whenever the observed price lies above it.
	BracketLow  float64 `json:"bracket_low" mapstructure:"bracket_low"`
	BracketHigh float64 `json:"bracket_high" mapstructure:"bracket_high"`
	// BisectionStart is the first bisection estimate, inside the bracket.
	BisectionStart float64 `json:"bisection_start" mapstructure:"bisection_start"`
	// MaxVolatility is the largest Newton iterate accepted before the run is
	// declared divergent.
	MaxVolatility float64 `json:"max_volatility" mapstructure:"max_volatility"`
}

// DefaultConfig returns tolerance 1e-4, 100 iterations, Newton start 0.3
// and bisection bracket [0, 1] starting at 0.5.
func DefaultConfig() Config {
	return Config{
		Tolerance:      DefaultTolerance,
		MaxIterations:  DefaultMaxIterations,
		InitialGuess:   DefaultInitialGuess,
		BracketLow:     DefaultBracketLow,
		BracketHigh:    DefaultBracketHigh,
		BisectionStart: DefaultBisectionStart,
		MaxVolatility:  DefaultMaxVolatility,
	}
}

// Validate checks that the configuration describes a usable search.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"tolerance":       c.Tolerance,
		"initial guess":   c.InitialGuess,
		"bracket low":     c.BracketLow,
		"bracket high":    c.BracketHigh,
		"bisection start": c.BisectionStart,
		"max volatility":  c.MaxVolatility,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", pricing.ErrInvalidInput, name)
		}
	}

	switch {
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive, got %v", pricing.ErrInvalidInput, c.Tolerance)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be positive, got %d", pricing.ErrInvalidInput, c.MaxIterations)
	case c.InitialGuess <= 0:
		return fmt.Errorf("%w: initial guess must be positive, got %v", pricing.ErrInvalidInput, c.InitialGuess)
	case c.BracketLow < 0 || c.BracketHigh <= c.BracketLow:
		return fmt.Errorf("%w: bracket [%v, %v] is empty or negative", pricing.ErrInvalidInput, c.BracketLow, c.BracketHigh)
	case c.BisectionStart <= c.BracketLow || c.BisectionStart >= c.BracketHigh:
		return fmt.Errorf("%w: bisection start %v outside bracket (%v, %v)", pricing.ErrInvalidInput, c.BisectionStart, c.BracketLow, c.BracketHigh)
	case c.MaxVolatility <= c.InitialGuess:
		return fmt.Errorf("%w: max volatility %v must exceed initial guess %v", pricing.ErrInvalidInput, c.MaxVolatility, c.InitialGuess)
	}
	return nil
}
