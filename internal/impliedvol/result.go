package impliedvol

import "fmt"

// Result is a volatility estimate tagged with how it was obtained.
type Result struct {
	Method     Method  `json:"method"`
	Volatility float64 `json:"volatility"`
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	// Residual is model price minus observed price at Volatility.
	Residual float64 `json:"residual"`
	// Expansions counts how many times bisection doubled its upper bound.
	Expansions int `json:"expansions,omitempty"`
}

// Err returns ErrNonConvergence, wrapped with context, when the solver stopped at its
// iteration cap, and nil otherwise.
func (r Result) Err() error {
	if r.Converged {
		return nil
	}
	return fmt.Errorf("%s after %d iterations (residual %g): %w", r.Method, r.Iterations, r.Residual, ErrNonConvergence)
}
