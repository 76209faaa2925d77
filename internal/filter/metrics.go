// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package filter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the directive filter pipeline.
var (
	// runDuration tracks the latency of Pipeline.Run calls.
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netgrid_filter_run_duration_seconds",
		Help:    "Histogram of directive filter pipeline latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ruleFired counts removals per rule.
	ruleFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netgrid_filter_rule_fired_total",
		Help: "Total number of directive removals per filter rule",
	}, []string{"rule"})

	// tokensKept counts directives surviving the pipeline.
	tokensKept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netgrid_filter_tokens_kept_total",
		Help: "Total number of directives accepted by the filter pipeline",
	})
)

// recordRunMetrics records metrics for a completed pipeline run.
func recordRunMetrics(duration time.Duration, result Result) {
	runDuration.Observe(duration.Seconds())
	tokensKept.Add(float64(len(result.Kept)))
	for _, rem := range result.Removed {
		ruleFired.WithLabelValues(rem.Rule).Inc()
	}
}
