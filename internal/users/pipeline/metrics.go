// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/taibuivan/bazaar/internal/platform/constants"
)

// Outcome labels.
const (
	OutcomePass = "pass"
	OutcomeFail = "fail"
)

// Metrics records step outcomes and pipeline latency.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	steps    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "pipeline_steps_total",
				Help:      "Total number of pipeline steps executed, by outcome",
			},
			[]string{"pipeline", "step", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: constants.MetricsNamespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of a full pipeline run in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline", "outcome"},
		),
	}
}

func (m *Metrics) observeStep(pipeline, step, outcome string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(pipeline, step, outcome).Inc()
}

func (m *Metrics) observeRun(pipeline, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(pipeline, outcome).Observe(seconds)
}
