package impliedvol

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-iv/internal/pricing"
)

// Outcome is one (quote, method) run.
type Outcome struct {
	Index  int           `json:"index"` // position of the quote in the input
	Quote  pricing.Quote `json:"quote"`
	Result Result        `json:"result"`
	Err    error         `json:"-"`
}

// Batch solves many quotes concurrently. Solvers share no state, so quotes are
// fanned out over at most Workers goroutines.
type Batch struct {
	Config  Config
	Methods []Method
	// Workers bounds concurrency; zero or negative means runtime.NumCPU().
	Workers int
	// Observe, if set, is called once per outcome from the worker goroutine.
	Observe func(m Method, res Result, err error)
}

// Run solves every quote with every method. Outcomes are ordered by quote, then
// by the order of b.Methods. Solver errors stay in Outcome.Err; Run only fails
// when ctx is cancelled.
func (b Batch) Run(ctx context.Context, quotes []pricing.Quote) ([]Outcome, error) {
	methods := b.Methods
	if len(methods) == 0 {
		methods = AllMethods()
	}
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Outcome, len(quotes)*len(methods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range quotes {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j, m := range methods {
				res, err := Solve(q, m, b.Config)
				if b.Observe != nil {
					b.Observe(m, res, err)
				}
				out[i*len(methods)+j] = Outcome{Index: i, Quote: q, Result: res, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SolveAll is shorthand for a Batch with the given methods, config and worker count.
func SolveAll(ctx context.Context, quotes []pricing.Quote, methods []Method, cfg Config, workers int) ([]Outcome, error) {
	return Batch{Config: cfg, Methods: methods, Workers: workers}.Run(ctx, quotes)
}
