// Package server exposes pricing and implied-volatility solving over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-iv/internal/impliedvol"
	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/metrics"
	"github.com/contactkeval/option-iv/internal/pricing"
	"github.com/contactkeval/option-iv/internal/report"
)

// Handler serves the REST API. Solver settings sent with a request override
// the defaults for that request only.
type Handler struct {
	solver   impliedvol.Config
	workers  int
	recorder *metrics.Recorder
}

// NewHandler creates the handler. recorder may be nil, in which case nothing is
// recorded and /metrics is not served.
func NewHandler(solver impliedvol.Config, workers int, recorder *metrics.Recorder) *Handler {
	return &Handler{solver: solver, workers: workers, recorder: recorder}
}

// New returns a gin engine with every route registered.
func New(solver impliedvol.Config, workers int, recorder *metrics.Recorder) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	NewHandler(solver, workers, recorder).RegisterRoutes(router)
	return router
}

// RegisterRoutes binds the handler methods to router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if h.recorder != nil {
		router.GET("/metrics", gin.WrapH(h.recorder.Handler()))
	}

	api := router.Group("/v1")
	{
		api.POST("/price", h.Price)
		api.POST("/implied-vol", h.ImpliedVol)
		api.POST("/implied-vol/batch", h.Batch)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps solver errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, impliedvol.ErrDivergence), errors.Is(err, impliedvol.ErrApproximationOutOfDomain):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func (h *Handler) observe(m impliedvol.Method, res impliedvol.Result, err error) {
	if h.recorder != nil {
		h.recorder.Observe(m, res, err)
	}
}

// solverConfig applies per-request overrides; zero values keep the default.
func (h *Handler) solverConfig(tolerance float64, maxIterations int) (impliedvol.Config, error) {
	cfg := h.solver
	if tolerance != 0 {
		cfg.Tolerance = tolerance
	}
	if maxIterations != 0 {
		cfg.MaxIterations = maxIterations
	}
	if err := cfg.Validate(); err != nil {
		return impliedvol.Config{}, err
	}
	return cfg, nil
}

type priceRequest struct {
	Spot       float64 `json:"spot"`
	Strike     float64 `json:"strike"`
	Expiry     float64 `json:"expiry"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
	Vega  decimal.Decimal `json:"vega"`
}

// Price returns the Black-Scholes call price and vega.
func (h *Handler) Price(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", pricing.ErrInvalidInput, err))
		return
	}

	price, err := pricing.CallPrice(req.Spot, req.Strike, req.Expiry, req.Rate, req.Volatility)
	if err != nil {
		abort(c, err)
		return
	}
	vega, err := pricing.CallVega(req.Spot, req.Strike, req.Expiry, req.Rate, req.Volatility)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, priceResponse{
		Price: decimal.NewFromFloat(price).Round(8),
		Vega:  decimal.NewFromFloat(vega).Round(8),
	})
}

type impliedVolRequest struct {
	pricing.Quote
	Method        string  `json:"method"`
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"max_iterations"`
}

type methodResult struct {
	impliedvol.Result
	Error string `json:"error,omitempty"`
}

type impliedVolResponse struct {
	Results []methodResult `json:"results"`
}

// ImpliedVol inverts one quote with the requested method, or with every
// method when none (or "all") is given. A single failing method maps to an
// error status; with several methods, failures are reported per result and the
// request only fails if all of them did.
func (h *Handler) ImpliedVol(c *gin.Context) {
	var req impliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", pricing.ErrInvalidInput, err))
		return
	}
	if err := req.Quote.Validate(); err != nil {
		abort(c, err)
		return
	}
	cfg, err := h.solverConfig(req.Tolerance, req.MaxIterations)
	if err != nil {
		abort(c, err)
		return
	}

	var names []string
	if req.Method != "" {
		names = []string{req.Method}
	}
	methods, err := impliedvol.ParseMethods(names)
	if err != nil {
		abort(c, err)
		return
	}

	resp := impliedVolResponse{Results: make([]methodResult, 0, len(methods))}
	var firstErr error
	failed := 0
	for _, m := range methods {
		res, err := impliedvol.Solve(req.Quote, m, cfg)
		h.observe(m, res, err)

		mr := methodResult{Result: res}
		if err != nil {
			mr.Error = err.Error()
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
		resp.Results = append(resp.Results, mr)
	}

	if failed == len(methods) {
		c.AbortWithStatusJSON(statusFor(firstErr), gin.H{"error": firstErr.Error(), "results": resp.Results})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type batchQuote struct {
	Symbol string `json:"symbol"`
	pricing.Quote
}

type batchRequest struct {
	Quotes        []batchQuote `json:"quotes"`
	Methods       []string     `json:"methods"`
	Tolerance     float64      `json:"tolerance"`
	MaxIterations int          `json:"max_iterations"`
}

type batchResponse struct {
	Rows    []report.Row   `json:"rows"`
	Summary report.Summary `json:"summary"`
}

// Batch solves many quotes concurrently and answers with report rows.
func (h *Handler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", pricing.ErrInvalidInput, err))
		return
	}
	if len(req.Quotes) == 0 {
		abort(c, fmt.Errorf("%w: no quotes", pricing.ErrInvalidInput))
		return
	}
	cfg, err := h.solverConfig(req.Tolerance, req.MaxIterations)
	if err != nil {
		abort(c, err)
		return
	}
	methods, err := impliedvol.ParseMethods(req.Methods)
	if err != nil {
		abort(c, err)
		return
	}

	quotes := make([]pricing.Quote, len(req.Quotes))
	symbols := make([]string, len(req.Quotes))
	for i, bq := range req.Quotes {
		if err := bq.Quote.Validate(); err != nil {
			abort(c, fmt.Errorf("quote %d: %w", i, err))
			return
		}
		quotes[i], symbols[i] = bq.Quote, bq.Symbol
	}

	b := impliedvol.Batch{Config: cfg, Methods: methods, Workers: h.workers, Observe: h.observe}
	outcomes, err := b.Run(c.Request.Context(), quotes)
	if err != nil {
		abort(c, err)
		return
	}

	rows := report.NewRows(outcomes, symbols)
	c.JSON(http.StatusOK, batchResponse{Rows: rows, Summary: report.Summarize(rows)})
}
