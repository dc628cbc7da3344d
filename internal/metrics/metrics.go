// Package metrics exposes solver counters and histograms in prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contactkeval/option-iv/internal/impliedvol"
)

const namespace = "optioniv"

// Solve outcomes used as the "outcome" label.
const (
	OutcomeConverged    = "converged"
	OutcomeNotConverged = "not_converged"
	OutcomeError        = "error"
)

// Recorder owns a private registry so tests and multiple servers don't collide
// on the global one.
type Recorder struct {
	registry   *prometheus.Registry
	solves     *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	expansions prometheus.Counter
}

// NewRecorder creates a Recorder with the solver metrics and the Go runtime
// collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Implied volatility solves by method and outcome",
		}, []string{"method", "outcome"}),
		iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_iterations",
			Help:      "Iterations used per solve",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"method"}),
		expansions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_expansions_total",
			Help:      "Times bisection doubled its upper bound",
		}),
	}

	r.registry.MustRegister(
		r.solves,
		r.iterations,
		r.expansions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one solver run. Its signature matches impliedvol.Batch.Observe.
func (r *Recorder) Observe(m impliedvol.Method, res impliedvol.Result, err error) {
	method := m.String()
	switch {
	case err != nil:
		r.solves.WithLabelValues(method, OutcomeError).Inc()
		return
	case res.Converged:
		r.solves.WithLabelValues(method, OutcomeConverged).Inc()
	default:
		r.solves.WithLabelValues(method, OutcomeNotConverged).Inc()
	}

	if m != impliedvol.MethodApprox {
		r.iterations.WithLabelValues(method).Observe(float64(res.Iterations))
	}
	if res.Expansions > 0 {
		r.expansions.Add(float64(res.Expansions))
	}
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
