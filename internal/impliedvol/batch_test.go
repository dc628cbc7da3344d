package impliedvol

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-iv/internal/pricing"
)

func TestBatchRunPreservesOrder(t *testing.T) {
	var quotes []pricing.Quote
	for S := 80.0; S <= 120; S += 5 {
		quotes = append(quotes, quoteAt(t, S, 100, 0.25, 0.03, 0.35))
	}

	var mu sync.Mutex
	observed := map[Method]int{}
	b := Batch{
		Config:  DefaultConfig(),
		Methods: []Method{MethodNewton, MethodBisection},
		Workers: 3,
		Observe: func(m Method, _ Result, _ error) {
			mu.Lock()
			observed[m]++
			mu.Unlock()
		},
	}

	out, err := b.Run(context.Background(), quotes)
	require.NoError(t, err)
	require.Len(t, out, 2*len(quotes))

	for i, o := range out {
		assert.Equal(t, i/2, o.Index)
		assert.Equal(t, quotes[i/2], o.Quote)
		assert.Equal(t, b.Methods[i%2], o.Result.Method)
		assert.NoError(t, o.Err)
		assert.True(t, o.Result.Converged)
		assert.InDelta(t, 0.35, o.Result.Volatility, 1e-3)
	}
	assert.Equal(t, map[Method]int{MethodNewton: len(quotes), MethodBisection: len(quotes)}, observed)
}

func TestBatchRunKeepsSolverErrors(t *testing.T) {
	good := quoteAt(t, 100, 100, 1, 0.05, 0.3)
	outOfDomain, err := pricing.NewQuote(0.01, 50, 100, 1, 0)
	require.NoError(t, err)

	out, err := Batch{Config: DefaultConfig(), Methods: []Method{MethodApprox}}.Run(context.Background(), []pricing.Quote{good, outOfDomain})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, ErrApproximationOutOfDomain)
}

func TestBatchRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Batch{Config: DefaultConfig()}.Run(ctx, []pricing.Quote{quoteAt(t, 100, 100, 1, 0.05, 0.3)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveAll(t *testing.T) {
	quotes := []pricing.Quote{
		quoteAt(t, 95, 100, 0.5, 0.02, 0.2),
		quoteAt(t, 105, 100, 0.5, 0.02, 0.2),
	}

	out, err := SolveAll(context.Background(), quotes, nil, DefaultConfig(), 0)
	require.NoError(t, err)
	require.Len(t, out, 2*len(AllMethods()))
	for i, o := range out {
		assert.Equal(t, AllMethods()[i%3], o.Result.Method)
		assert.NoError(t, o.Err)
	}
}
