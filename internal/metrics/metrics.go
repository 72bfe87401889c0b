// Package metrics exports field evaluation statistics to Prometheus. A
// Metrics value is installed as the observer of a region tree.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/fieldgrid/internal/field"
)

const namespace = "fieldgrid"

// Metrics implements field.Observer.
type Metrics struct {
	evaluations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	generation  prometheus.Gauge
	samples     *prometheus.CounterVec
}

var _ field.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Field value requests by field type and whether the cached value was reused.",
		}, []string{"type", "cache"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Failed field evaluations by field type and error class.",
		}, []string{"type", "class"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Current structural generation of the region tree.",
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Grid samples evaluated by the sampler, by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.evaluations, m.failures, m.generation, m.samples} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Evaluated(t field.Type, cached bool, err error) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.evaluations.WithLabelValues(t.String(), cache).Inc()
	if err != nil {
		m.failures.WithLabelValues(t.String(), field.Class(err)).Inc()
	}
}

func (m *Metrics) GenerationChanged(generation uint64) {
	m.generation.Set(float64(generation))
}

// Sampled counts one sampler point; defined is false where the field was
// not defined.
func (m *Metrics) Sampled(defined bool) {
	outcome := "defined"
	if !defined {
		outcome = "undefined"
	}
	m.samples.WithLabelValues(outcome).Inc()
}
