package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/impliedvol"
	"github.com/contactkeval/option-iv/internal/metrics"
	"github.com/contactkeval/option-iv/internal/pricing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	return New(impliedvol.DefaultConfig(), 2, metrics.NewRecorder())
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func atmPrice(t *testing.T, sigma float64) float64 {
	t.Helper()
	price, err := pricing.CallPrice(100, 100, 1, 0.05, sigma)
	require.NoError(t, err)
	return price
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPrice(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/v1/price", gin.H{"spot": 100, "strike": 100, "expiry": 1, "rate": 0.05, "volatility": 0.2})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10.45058357", resp["price"])
	assert.NotEmpty(t, resp["vega"])

	rec = do(t, router, http.MethodPost, "/v1/price", gin.H{"spot": 0, "strike": 100, "expiry": 1, "volatility": 0.2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/price", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverflowingInputsAreBadRequests(t *testing.T) {
	router := newTestRouter()

	rec := do(t, router, http.MethodPost, "/v1/price", gin.H{"spot": 100, "strike": 100, "expiry": 1, "rate": -1000, "volatility": 0.3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid input")

	rec = do(t, router, http.MethodPost, "/v1/price", gin.H{"spot": 100, "strike": 100, "expiry": 1, "rate": 0.05, "volatility": 1e200})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, method := range []string{"", "newton", "bisection", "approx"} {
		rec = do(t, router, http.MethodPost, "/v1/implied-vol", gin.H{
			"price": 10, "spot": 100, "strike": 100, "expiry": 1, "rate": -1000, "method": method,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Contains(t, rec.Body.String(), "discount factor", method)
	}
}

func TestImpliedVolSingleMethod(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/v1/implied-vol", gin.H{
		"price": atmPrice(t, 0.3), "spot": 100, "strike": 100, "expiry": 1, "rate": 0.05, "method": "newton",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp impliedVolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, impliedvol.MethodNewton, resp.Results[0].Method)
	assert.True(t, resp.Results[0].Converged)
	assert.InDelta(t, 0.3, resp.Results[0].Volatility, 1e-3)
	assert.Empty(t, resp.Results[0].Error)
}

func TestImpliedVolAllMethods(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/v1/implied-vol", gin.H{
		"price": atmPrice(t, 0.3), "spot": 100, "strike": 100, "expiry": 1, "rate": 0.05, "tolerance": 1e-6,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp impliedVolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	for i, m := range impliedvol.AllMethods() {
		assert.Equal(t, m, resp.Results[i].Method)
		assert.InDelta(t, 0.3, resp.Results[i].Volatility, 0.01)
	}
}

func TestImpliedVolErrors(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		name string
		body gin.H
		want int
	}{
		{"invalid quote", gin.H{"price": 1, "spot": 100, "strike": 100, "expiry": 0, "method": "newton"}, http.StatusBadRequest},
		{"unknown method", gin.H{"price": 10, "spot": 100, "strike": 100, "expiry": 1, "method": "secant"}, http.StatusBadRequest},
		{"bad tolerance", gin.H{"price": 10, "spot": 100, "strike": 100, "expiry": 1, "tolerance": -1}, http.StatusBadRequest},
		{"divergence", gin.H{"price": 150, "spot": 100, "strike": 100, "expiry": 1, "rate": 0.05, "method": "newton"}, http.StatusUnprocessableEntity},
		{"out of domain", gin.H{"price": 0.01, "spot": 50, "strike": 100, "expiry": 1, "method": "approx"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/implied-vol", tc.body)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestImpliedVolNonConvergenceIsNotAnError(t *testing.T) {
	rec := do(t, newTestRouter(), http.MethodPost, "/v1/implied-vol", gin.H{
		"price": atmPrice(t, 0.3), "spot": 100, "strike": 100, "expiry": 1, "rate": 0.05,
		"method": "bisection", "tolerance": 1e-12, "max_iterations": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp impliedVolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.False(t, resp.Results[0].Converged)
	assert.Equal(t, 2, resp.Results[0].Iterations)
}

func TestBatch(t *testing.T) {
	router := newTestRouter()

	var quotes []gin.H
	for _, S := range []float64{90, 100, 110} {
		price, err := pricing.CallPrice(S, 100, 0.25, 0.03, 0.35)
		require.NoError(t, err)
		quotes = append(quotes, gin.H{"symbol": fmt.Sprintf("C%g", S), "price": price, "spot": S, "strike": 100, "expiry": 0.25, "rate": 0.03})
	}

	rec := do(t, router, http.MethodPost, "/v1/implied-vol/batch", gin.H{"quotes": quotes, "methods": []string{"newton", "bisection"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 6)
	assert.Equal(t, 6, resp.Summary.Converged)
	assert.Equal(t, "C90", resp.Rows[0].Symbol)
	assert.Equal(t, "newton", resp.Rows[0].Method)
	assert.Equal(t, "bisection", resp.Rows[1].Method)
	assert.Equal(t, "C110", resp.Rows[5].Symbol)

	metricsRec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `optioniv_solves_total{method="bisection",outcome="converged"} 3`)

	rec = do(t, router, http.MethodPost, "/v1/implied-vol/batch", gin.H{"quotes": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/v1/implied-vol/batch", gin.H{"quotes": []gin.H{{"price": 1, "spot": -1, "strike": 100, "expiry": 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoRecorderHidesMetrics(t *testing.T) {
	router := New(impliedvol.DefaultConfig(), 1, nil)
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
