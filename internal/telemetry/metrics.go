// Package telemetry exposes Prometheus collectors for pipeline runs.
package telemetry

import (
	"context"
	"net/http"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const kindUnexpected = "unexpected"

// RunMetrics holds the collectors fed by the executor finalize hook.
type RunMetrics struct {
	runsTotal          *prometheus.CounterVec
	failuresTotal      *prometheus.CounterVec
	compensationsTotal *prometheus.CounterVec
	stepsRun           *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRunMetrics registers the collectors on a private registry.
func NewRunMetrics() *RunMetrics {
	registry := prometheus.NewRegistry()

	metrics := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontdesk_pipeline_runs_total",
				Help: "Total number of pipeline runs by flow and final state",
			},
			[]string{"flow", "state"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontdesk_pipeline_failures_total",
				Help: "Total number of failed runs by flow, failing guard and error kind",
			},
			[]string{"flow", "guard", "kind"},
		),
		compensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontdesk_pipeline_compensations_total",
				Help: "Total number of compensation attempts by flow and result",
			},
			[]string{"flow", "result"},
		),
		stepsRun: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frontdesk_pipeline_steps_run",
				Help:    "Number of guards evaluated per run",
				Buckets: []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"flow"},
		),
		registry: registry,
	}

	registry.MustRegister(
		metrics.runsTotal,
		metrics.failuresTotal,
		metrics.compensationsTotal,
		metrics.stepsRun,
	)
	return metrics
}

// Observe records one finished run. Its signature matches workflow.FinalizeFunc.
func (metrics *RunMetrics) Observe(_ context.Context, outcome workflow.Outcome) {
	metrics.runsTotal.WithLabelValues(outcome.Flow, string(outcome.State)).Inc()
	metrics.stepsRun.WithLabelValues(outcome.Flow).Observe(float64(outcome.StepsRun))
	if outcome.Succeeded() {
		return
	}
	kind := kindUnexpected
	if outcome.Kind() != "" {
		kind = outcome.Kind().String()
	}
	metrics.failuresTotal.WithLabelValues(outcome.Flow, outcome.FailedStep, kind).Inc()
	switch {
	case outcome.Compensated:
		metrics.compensationsTotal.WithLabelValues(outcome.Flow, "ok").Inc()
	case outcome.CompensationErr != nil:
		metrics.compensationsTotal.WithLabelValues(outcome.Flow, "error").Inc()
	}
}

// Registry returns the registry holding the run collectors.
func (metrics *RunMetrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}
