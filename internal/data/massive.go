// Package data provides quote provider implementations.
//
// This file contains a Massive-backed Provider that turns option contract
// snapshots into observed call quotes.
//
// Design notes:
//   - Uses the Massive REST API through resty rather than an SDK
//   - Outbound requests are paced by a token-bucket limiter; HTTP 429 is retried
//   - Logging is verbose at Debug/Trace levels for diagnostics
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/contactkeval/option-iv/internal/logger"
)

const defaultMassiveBaseURL = "https://api.massive.com"

// ContractSpec identifies one call contract to snapshot.
type ContractSpec struct {
	Underlying string  `mapstructure:"underlying" json:"underlying"`
	Expiry     string  `mapstructure:"expiry" json:"expiry"` // YYYY-MM-DD
	Strike     float64 `mapstructure:"strike" json:"strike"`
}

// MassiveConfig configures the Massive provider.
type MassiveConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// RequestsPerMinute paces outbound calls; zero means 5, the free-tier limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	// RetryWait is the pause before retrying a rate-limited call; zero means one second.
	RetryWait time.Duration `mapstructure:"retry_wait"`
	// RiskFreeRate is attached to every quote; the snapshot does not carry one.
	RiskFreeRate float64        `mapstructure:"risk_free_rate"`
	Contracts    []ContractSpec `mapstructure:"contracts"`
}

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	cfg     MassiveConfig
	client  *resty.Client
	limiter *rate.Limiter

	// now is the valuation clock used for time to expiry.
	now func() time.Time

	// secondary is an optional fallback provider.
	secondary Provider
}

// massiveSnapshotResp models the option contract snapshot endpoint.
type massiveSnapshotResp struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
	Results   struct {
		Day struct {
			Close float64 `json:"close"`
		} `json:"day"`
		Details struct {
			ContractType   string  `json:"contract_type"`
			ExerciseStyle  string  `json:"exercise_style"`
			ExpirationDate string  `json:"expiration_date"`
			StrikePrice    float64 `json:"strike_price"`
			Ticker         string  `json:"ticker"`
		} `json:"details"`
		LastQuote struct {
			Ask float64 `json:"ask"`
			Bid float64 `json:"bid"`
		} `json:"last_quote"`
		LastTrade struct {
			Price float64 `json:"price"`
		} `json:"last_trade"`
		UnderlyingAsset struct {
			Price  float64 `json:"price"`
			Ticker string  `json:"ticker"`
		} `json:"underlying_asset"`
	} `json:"results"`
}

// NewMassiveDataProvider constructs a Massive-backed quote provider.
//
// Parameters:
//   - cfg: API key, endpoint, pacing and the contracts to snapshot
//   - secondary: optional fallback provider, may be nil
func NewMassiveDataProvider(cfg MassiveConfig, secondary Provider) *massiveDataProvider {
	logger.Infof("initializing Massive data provider (%d contracts)", len(cfg.Contracts))

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultMassiveBaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "option-iv/1.0").
		SetAuthToken(cfg.APIKey).
		SetQueryParam("apiKey", cfg.APIKey).
		SetRetryCount(3).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r != nil && r.StatusCode() == http.StatusTooManyRequests {
				logger.Infof("rate limit hit, retrying in %s", cfg.RetryWait)
				return true
			}
			return false
		})

	return &massiveDataProvider{
		cfg:       cfg,
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		now:       time.Now,
		secondary: secondary,
	}
}

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetQuotes snapshots every configured contract. Contracts without a usable
// price are skipped with a warning; transport and API errors abort the call.
func (massiveDataProv *massiveDataProvider) GetQuotes(ctx context.Context) ([]OptionQuote, error) {
	if len(massiveDataProv.cfg.Contracts) == 0 {
		return nil, fmt.Errorf("massive provider has no contracts configured")
	}

	out := make([]OptionQuote, 0, len(massiveDataProv.cfg.Contracts))
	for _, c := range massiveDataProv.cfg.Contracts {
		q, ok, err := massiveDataProv.snapshot(ctx, c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// snapshot fetches one contract and converts it to a quote.
// ok is false when the contract has no usable price.
func (massiveDataProv *massiveDataProvider) snapshot(ctx context.Context, c ContractSpec) (OptionQuote, bool, error) {
	expiry, err := time.Parse("2006-01-02", c.Expiry)
	if err != nil {
		return OptionQuote{}, false, fmt.Errorf("contract %s expiry %q: %w", c.Underlying, c.Expiry, err)
	}
	symbol := OptionSymbolFromParts(c.Underlying, expiry, c.Strike)

	if err := massiveDataProv.limiter.Wait(ctx); err != nil {
		return OptionQuote{}, false, err
	}

	logger.Debugf("snapshot request: %s", symbol)
	resp, err := massiveDataProv.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"underlying": c.Underlying,
			"contract":   symbol,
		}).
		Get("/v3/snapshot/options/{underlying}/{contract}")
	if err != nil {
		return OptionQuote{}, false, fmt.Errorf("massive snapshot %s: %w", symbol, err)
	}

	var body massiveSnapshotResp
	if resp.IsError() {
		_ = json.Unmarshal(resp.Body(), &body)
		logger.Errorf("massive snapshot API error status=%d message=%s", resp.StatusCode(), body.Message)
		return OptionQuote{}, false, fmt.Errorf("massive returned status %d: %s", resp.StatusCode(), body.Message)
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return OptionQuote{}, false, fmt.Errorf("decode snapshot %s: %w", symbol, err)
	}

	res := body.Results
	logger.Tracef("snapshot %s: underlying=%.2f bid=%.4f ask=%.4f last=%.4f close=%.4f",
		symbol, res.UnderlyingAsset.Price, res.LastQuote.Bid, res.LastQuote.Ask, res.LastTrade.Price, res.Day.Close)

	var price float64
	switch {
	case res.LastQuote.Bid > 0 && res.LastQuote.Ask > 0:
		price = (res.LastQuote.Bid + res.LastQuote.Ask) / 2
	case res.LastTrade.Price > 0:
		price = res.LastTrade.Price
	case res.Day.Close > 0:
		price = res.Day.Close
	default:
		logger.Warnf("no usable option price for %s, skipping", symbol)
		return OptionQuote{}, false, nil
	}

	strike := c.Strike
	if res.Details.StrikePrice > 0 {
		strike = res.Details.StrikePrice
	}
	if res.Details.ExpirationDate != "" {
		if t, err := time.Parse("2006-01-02", res.Details.ExpirationDate); err == nil {
			expiry = t
		}
	}

	years := YearFraction(massiveDataProv.now(), expiry)
	if years <= 0 {
		logger.Warnf("contract %s expired on %s, skipping", symbol, expiry.Format("2006-01-02"))
		return OptionQuote{}, false, nil
	}

	return OptionQuote{
		Symbol: symbol,
		Spot:   res.UnderlyingAsset.Price,
		Strike: strike,
		Expiry: years,
		Rate:   massiveDataProv.cfg.RiskFreeRate,
		Price:  price,
	}, true, nil
}
