package pricing

import "fmt"

// Quote is an observed European call price together with the model inputs needed to
// invert it. Build it with NewQuote; the zero value is not a valid quote.
type Quote struct {
	Price  float64 `json:"price"`  // observed call price
	Spot   float64 `json:"spot"`   // underlying price
	Strike float64 `json:"strike"` // strike price
	Expiry float64 `json:"expiry"` // time to maturity in years
	Rate   float64 `json:"rate"`   // continuously compounded risk-free rate
}

// NewQuote validates the inputs and returns a Quote.
// Spot, strike and expiry must be positive, the price non-negative, and every field finite.
// Prices outside the no-arbitrage bounds are accepted; see Quote.WithinBounds.
func NewQuote(price, spot, strike, expiry, rate float64) (Quote, error) {
	q := Quote{Price: price, Spot: spot, Strike: strike, Expiry: expiry, Rate: rate}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Validate reports whether q satisfies the invariants enforced by NewQuote.
func (q Quote) Validate() error {
	switch {
	case !isFinite(q.Price) || !isFinite(q.Spot) || !isFinite(q.Strike) || !isFinite(q.Expiry) || !isFinite(q.Rate):
		return fmt.Errorf("%w: quote contains a non-finite value %+v", ErrInvalidInput, q)
	case q.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidInput, q.Spot)
	case q.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInput, q.Strike)
	case q.Expiry <= 0:
		return fmt.Errorf("%w: expiry must be positive, got %v", ErrInvalidInput, q.Expiry)
	case q.Price < 0:
		return fmt.Errorf("%w: price must be non-negative, got %v", ErrInvalidInput, q.Price)
	case !isFinite(DiscountedStrike(q.Strike, q.Expiry, q.Rate)):
		return fmt.Errorf("%w: discount factor overflows for rate %v and expiry %v", ErrInvalidInput, q.Rate, q.Expiry)
	}
	return nil
}

// CallPrice prices the quote's contract at volatility sigma.
func (q Quote) CallPrice(sigma float64) (float64, error) {
	return CallPrice(q.Spot, q.Strike, q.Expiry, q.Rate, sigma)
}

// Vega returns the call vega of the quote's contract at volatility sigma.
func (q Quote) Vega(sigma float64) (float64, error) {
	return CallVega(q.Spot, q.Strike, q.Expiry, q.Rate, sigma)
}

// Bounds returns the no-arbitrage interval for the quote's call price.
func (q Quote) Bounds() (lower, upper float64) {
	return CallBounds(q.Spot, q.Strike, q.Expiry, q.Rate)
}

// WithinBounds reports whether the observed price lies strictly inside the no-arbitrage
// interval, where an implied volatility exists.
func (q Quote) WithinBounds() bool {
	lower, upper := q.Bounds()
	return q.Price > lower && q.Price < upper
}
