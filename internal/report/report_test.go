package report

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/impliedvol"
	"github.com/contactkeval/option-iv/internal/pricing"
	"github.com/contactkeval/option-iv/internal/testutil"
)

func sampleOutcomes() []impliedvol.Outcome {
	return []impliedvol.Outcome{
		{
			Index: 0,
			Quote: pricing.Quote{Price: 10.4506, Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05},
			Result: impliedvol.Result{
				Method:     impliedvol.MethodNewton,
				Volatility: 0.2,
				Converged:  true,
				Iterations: 3,
				Residual:   -0.0000132,
			},
		},
		{
			Index:  1,
			Quote:  pricing.Quote{Price: 0.01, Spot: 50, Strike: 100, Expiry: 1, Rate: 0},
			Result: impliedvol.Result{Method: impliedvol.MethodApprox},
			Err:    fmt.Errorf("%w: discriminant -12.5 is negative", impliedvol.ErrApproximationOutOfDomain),
		},
		{
			Index: 2,
			Quote: pricing.Quote{Price: 9.9, Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05},
			Result: impliedvol.Result{
				Method:     impliedvol.MethodBisection,
				Volatility: 0.25,
				Iterations: 2,
				Residual:   0.5,
				Expansions: 1,
			},
		},
	}
}

func TestNewRows(t *testing.T) {
	rows := NewRows(sampleOutcomes(), []string{"ATM", "DEEP"})
	require.Len(t, rows, 3)

	assert.Equal(t, Row{
		Symbol:     "ATM",
		Spot:       "100.00",
		Strike:     "100.00",
		Expiry:     "1.000000",
		Rate:       "0.0500",
		Price:      "10.4506",
		Method:     "newton",
		IV:         "0.200000",
		Converged:  true,
		Iterations: 3,
		Residual:   "-0.00001320",
		Repriced:   "10.4506",
	}, rows[0])

	assert.Empty(t, rows[1].IV)
	assert.Empty(t, rows[1].Repriced)
	assert.Contains(t, rows[1].Error, "approximation out of domain")

	assert.Empty(t, rows[2].Symbol)
	assert.Equal(t, "12.3360", rows[2].Repriced)
	assert.Contains(t, rows[2].Error, "iteration cap reached")

	assert.Equal(t, Summary{Rows: 3, Converged: 1, Failed: 2}, Summarize(rows))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewRows(sampleOutcomes(), []string{"ATM", "DEEP"})))
	testutil.CompareWithGolden(t, "report_json", buf.Bytes())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, NewRows(sampleOutcomes(), []string{"ATM", "DEEP"})))
	testutil.CompareWithGolden(t, "report_csv", buf.Bytes())
}
