// Package metrics exposes migration progress as Prometheus counters.
package metrics

import (
	"context"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/procmigrate/internal/migrate"
)

const namespace = "procmigrate"

// Metrics counts pipeline events. It implements migrate.Recorder and owns
// its registry, so several instances can coexist in tests.
type Metrics struct {
	registry           *prom.Registry
	conversions        *prom.CounterVec
	applies            *prom.CounterVec
	correctionAttempts prom.Counter
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		conversions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Procedures processed by the conversion loop, by outcome.",
		}, []string{"outcome"}),
		applies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "applies_total",
			Help:      "Artifacts finished by the apply step, by outcome.",
		}, []string{"outcome"}),
		correctionAttempts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "correction_attempts_total",
			Help:      "Correction rounds requested from the generation service.",
		}),
	}
	m.registry.MustRegister(m.conversions, m.applies, m.correctionAttempts)
	return m
}

// Record implements migrate.Recorder.
func (m *Metrics) Record(_ context.Context, ev migrate.Event) error {
	switch ev.Stage {
	case migrate.StageConvert:
		m.conversions.WithLabelValues(ev.Outcome).Inc()
	case migrate.StageApply:
		if ev.IsCorrectionAttempt() {
			m.correctionAttempts.Inc()
		}
		if ev.Terminal() {
			m.applies.WithLabelValues(ev.Outcome).Inc()
		}
	}
	return nil
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prom.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
