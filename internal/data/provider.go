package data

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/pricing"
)

// Provider supplies observed call quotes to invert.
type Provider interface {
	Secondary() Provider
	GetQuotes(ctx context.Context) ([]OptionQuote, error)
}

// OptionQuote is one observed European call price as delivered by a provider.
type OptionQuote struct {
	Symbol string  `csv:"symbol" json:"symbol"`
	Spot   float64 `csv:"spot" json:"spot"`
	Strike float64 `csv:"strike" json:"strike"`
	Expiry float64 `csv:"expiry" json:"expiry"` // years
	Rate   float64 `csv:"rate" json:"rate"`
	Price  float64 `csv:"price" json:"price"`
}

// Quote validates the record and converts it to a pricing.Quote.
func (o OptionQuote) Quote() (pricing.Quote, error) {
	q, err := pricing.NewQuote(o.Price, o.Spot, o.Strike, o.Expiry, o.Rate)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("quote %s: %w", o.Symbol, err)
	}
	return q, nil
}

// FetchQuotes asks prov for quotes and walks the chain of secondary providers
// until one succeeds.
func FetchQuotes(ctx context.Context, prov Provider) ([]OptionQuote, error) {
	var errs []string
	for p := prov; p != nil; p = p.Secondary() {
		quotes, err := p.GetQuotes(ctx)
		if err == nil {
			return quotes, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Errorf("quote provider failed: %v", err)
		errs = append(errs, err.Error())
		if p.Secondary() != nil {
			logger.Infof("falling back to secondary provider")
		}
	}
	return nil, fmt.Errorf("no provider returned quotes: %s", strings.Join(errs, "; "))
}

// YearFraction returns the ACT/365 time between from and to in years.
func YearFraction(from, to time.Time) float64 {
	return to.Sub(from).Hours() / (24 * 365)
}

// OptionSymbolFromParts builds the OCC ticker of a call contract:
// O:<root><YYMMDD>C<strike×1000, zero-padded to 8 digits>.
func OptionSymbolFromParts(underlying string, expiryDate time.Time, strike float64) string {
	return fmt.Sprintf("O:%s%sC%08d",
		strings.ToUpper(underlying),
		expiryDate.UTC().Format("060102"),
		int(math.Round(strike*1000)))
}
