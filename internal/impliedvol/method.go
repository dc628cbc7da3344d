package impliedvol

import (
	"fmt"
	"strings"

	"github.com/contactkeval/option-iv/internal/pricing"
)

// Method names a root-finding strategy.
type Method string

const (
	MethodNewton    Method = "newton"
	MethodBisection Method = "bisection"
	MethodApprox    Method = "approx"
)

// AllMethods lists every strategy in the order they are reported.
func AllMethods() []Method {
	return []Method{MethodNewton, MethodBisection, MethodApprox}
}

func (m Method) String() string { return string(m) }

// ParseMethod accepts "newton", "bisection", "approx" or "hallerbach", case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "newton", "newton-raphson":
		return MethodNewton, nil
	case "bisection", "bisect":
		return MethodBisection, nil
	case "approx", "approximation", "hallerbach":
		return MethodApprox, nil
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrInvalidInput, s)
}

// ParseMethods parses a list of method names. An empty list or the single
// entry "all" selects every method.
func ParseMethods(names []string) ([]Method, error) {
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), "all")) {
		return AllMethods(), nil
	}

	out := make([]Method, 0, len(names))
	seen := map[Method]bool{}
	for _, name := range names {
		m, err := ParseMethod(name)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Solve runs the named strategy on q.
func Solve(q pricing.Quote, m Method, cfg Config) (Result, error) {
	switch m {
	case MethodNewton:
		return Newton(q, cfg)
	case MethodBisection:
		return Bisection(q, cfg)
	case MethodApprox:
		return Approximate(q)
	}
	return Result{Method: m}, fmt.Errorf("%w: unknown method %q", ErrInvalidInput, m)
}
