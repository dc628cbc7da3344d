package data

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/pricing"
)

func spotSweep() SweepSpec {
	return SweepSpec{Axis: AxisSpot, Start: 80, End: 121, Step: 1, Strike: 100, Expiry: 1.0 / 12, Rate: 0.05, Volatility: 0.25}
}

func TestSyntheticProvider_SpotSweep(t *testing.T) {
	quotes, err := NewSyntheticProvider(spotSweep()).GetQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 41)

	assert.Equal(t, 80.0, quotes[0].Spot)
	assert.Equal(t, 120.0, quotes[40].Spot)
	for _, q := range quotes {
		want, err := pricing.CallPrice(q.Spot, 100, 1.0/12, 0.05, 0.25)
		require.NoError(t, err)
		assert.Equal(t, want, q.Price)
		assert.Equal(t, 100.0, q.Strike)
	}
}

func TestSyntheticProvider_StrikeSweep(t *testing.T) {
	spec := SweepSpec{Axis: "Strike", Start: 40, End: 160, Step: 10, Spot: 100, Expiry: 1, Rate: 0.05, Volatility: 0.3}
	quotes, err := NewSyntheticProvider(spec).GetQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 12)
	assert.Equal(t, 40.0, quotes[0].Strike)
	assert.Equal(t, 150.0, quotes[11].Strike)
	assert.Equal(t, "sweep-strike-150", quotes[11].Symbol)
}

func TestSyntheticProvider_InvalidSpec(t *testing.T) {
	for name, mutate := range map[string]func(*SweepSpec){
		"axis":       func(s *SweepSpec) { s.Axis = "vol" },
		"empty":      func(s *SweepSpec) { s.End = s.Start },
		"step":       func(s *SweepSpec) { s.Step = 0 },
		"volatility": func(s *SweepSpec) { s.Volatility = 0 },
		"strike":     func(s *SweepSpec) { s.Strike = 0 },
		"nan start":  func(s *SweepSpec) { s.Start = math.NaN() },
		"nan step":   func(s *SweepSpec) { s.Step = math.NaN() },
		"inf end":    func(s *SweepSpec) { s.End = math.Inf(1) },
		"tiny step":  func(s *SweepSpec) { s.Step = 1e-12 },
		"nan rate":   func(s *SweepSpec) { s.Rate = math.NaN() },
	} {
		spec := spotSweep()
		mutate(&spec)
		_, err := NewSyntheticProvider(spec).GetQuotes(context.Background())
		assert.ErrorIs(t, err, pricing.ErrInvalidInput, name)
	}
}

func TestLocalCSVProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"symbol,spot,strike,expiry,rate,price\n"+
			"ATM,100,100,1,0.05,14.2313\n"+
			"OTM,100,120,0.5,0.05,2.5\n"), 0o644))

	quotes, err := NewLocalCSVProvider(path, nil).GetQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, OptionQuote{Symbol: "ATM", Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Price: 14.2313}, quotes[0])
	assert.Equal(t, "OTM", quotes[1].Symbol)
}

func TestFetchQuotesFallsBackToSecondary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")
	prov := NewLocalCSVProvider(missing, NewSyntheticProvider(spotSweep()))

	quotes, err := FetchQuotes(context.Background(), prov)
	require.NoError(t, err)
	assert.Len(t, quotes, 41)
}

func TestFetchQuotesMassiveFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"not entitled"}`))
	}))
	defer srv.Close()

	prov := NewMassiveDataProvider(MassiveConfig{
		BaseURL:           srv.URL,
		RequestsPerMinute: 60000,
		Contracts:         []ContractSpec{spyContract},
	}, NewSyntheticProvider(spotSweep()))

	quotes, err := FetchQuotes(context.Background(), prov)
	require.NoError(t, err)
	assert.Len(t, quotes, 41)
}

func TestFetchQuotesAllFail(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, err := FetchQuotes(context.Background(), NewLocalCSVProvider(missing, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")
}

func TestOptionQuoteValidation(t *testing.T) {
	_, err := OptionQuote{Symbol: "BAD", Spot: 100, Strike: 100, Expiry: 0, Price: 1}.Quote()
	assert.True(t, errors.Is(err, pricing.ErrInvalidInput))
	assert.Contains(t, err.Error(), "BAD")
}

func TestOptionSymbolFromParts(t *testing.T) {
	expiry := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "O:SPY250117C00580000", OptionSymbolFromParts("spy", expiry, 580))
	assert.Equal(t, "O:SPY250117C00582500", OptionSymbolFromParts("SPY", expiry, 582.5))
}

func TestYearFraction(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, YearFraction(from, from.AddDate(0, 0, 365)), 1e-12)
}
