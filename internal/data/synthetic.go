package data

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/contactkeval/option-iv/internal/pricing"
)

const (
	AxisSpot   = "spot"
	AxisStrike = "strike"
)

// maxSweepPoints caps how many quotes one sweep may generate.
const maxSweepPoints = 100_000

// SweepSpec describes a family of quotes priced at a known volatility, varying
// either the spot or the strike over [Start, End) in increments of Step.
type SweepSpec struct {
	Axis       string  `mapstructure:"axis" json:"axis"`
	Start      float64 `mapstructure:"start" json:"start"`
	End        float64 `mapstructure:"end" json:"end"`
	Step       float64 `mapstructure:"step" json:"step"`
	Spot       float64 `mapstructure:"spot" json:"spot"`     // fixed spot when sweeping strikes
	Strike     float64 `mapstructure:"strike" json:"strike"` // fixed strike when sweeping spots
	Expiry     float64 `mapstructure:"expiry" json:"expiry"`
	Rate       float64 `mapstructure:"rate" json:"rate"`
	Volatility float64 `mapstructure:"volatility" json:"volatility"`
}

// Validate checks the sweep is finite and priceable.
func (s SweepSpec) Validate() error {
	for name, v := range map[string]float64{
		"start": s.Start, "end": s.End, "step": s.Step, "spot": s.Spot,
		"strike": s.Strike, "expiry": s.Expiry, "rate": s.Rate, "volatility": s.Volatility,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: sweep %s is not finite (%v)", pricing.ErrInvalidInput, name, v)
		}
	}

	switch strings.ToLower(s.Axis) {
	case AxisSpot:
		if s.Strike <= 0 {
			return fmt.Errorf("%w: sweep strike must be positive", pricing.ErrInvalidInput)
		}
	case AxisStrike:
		if s.Spot <= 0 {
			return fmt.Errorf("%w: sweep spot must be positive", pricing.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: sweep axis must be %q or %q, got %q", pricing.ErrInvalidInput, AxisSpot, AxisStrike, s.Axis)
	}
	if s.Start <= 0 || s.End <= s.Start || s.Step <= 0 {
		return fmt.Errorf("%w: sweep range [%v, %v) step %v", pricing.ErrInvalidInput, s.Start, s.End, s.Step)
	}
	if n := s.points(); n > maxSweepPoints {
		return fmt.Errorf("%w: sweep has %.0f points, limit is %d", pricing.ErrInvalidInput, n, maxSweepPoints)
	}
	if s.Expiry <= 0 || s.Volatility <= 0 {
		return fmt.Errorf("%w: sweep expiry and volatility must be positive", pricing.ErrInvalidInput)
	}
	return nil
}

// points is the number of quotes the sweep generates.
func (s SweepSpec) points() float64 {
	return math.Ceil((s.End - s.Start) / s.Step)
}

// synthDataProvider implements Provider by pricing a sweep with the model itself,
// so every quote has a known implied volatility.
type synthDataProvider struct {
	spec      SweepSpec
	secondary Provider
}

func NewSyntheticProvider(spec SweepSpec) Provider { return &synthDataProvider{spec: spec} }

func (synthDataProv *synthDataProvider) Secondary() Provider {
	return synthDataProv.secondary
}

func (synthDataProv *synthDataProvider) GetQuotes(ctx context.Context) ([]OptionQuote, error) {
	spec := synthDataProv.spec
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	axis := strings.ToLower(spec.Axis)
	n := int(spec.points())
	out := make([]OptionQuote, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		x := spec.Start + float64(i)*spec.Step
		S, K := x, spec.Strike
		if axis == AxisStrike {
			S, K = spec.Spot, x
		}

		price, err := pricing.CallPrice(S, K, spec.Expiry, spec.Rate, spec.Volatility)
		if err != nil {
			return nil, err
		}
		out = append(out, OptionQuote{
			Symbol: fmt.Sprintf("sweep-%s-%g", axis, x),
			Spot:   S,
			Strike: K,
			Expiry: spec.Expiry,
			Rate:   spec.Rate,
			Price:  price,
		})
	}
	return out, nil
}
