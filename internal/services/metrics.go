// Package services – Prometheus instrumentation
//
// Counters here track pipeline outcomes rather than HTTP traffic (the HTTP
// layer has its own collectors). Label cardinality is bounded: "kind" is one
// of the three input kinds and "outcome" is a small fixed vocabulary.
package services

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeUpstream = "upstream_error"
	outcomeInternal = "internal_error"
)

var (
	// generationsTotal counts Generate calls by input kind and outcome.
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_generations_total",
			Help: "Total prompt generation attempts by input kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// regenerationsTotal counts Regenerate calls by outcome.
	regenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_regenerations_total",
			Help: "Total prompt regeneration attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// filterHitsTotal counts content-filter rejections by rule name. The rule
	// set is small and static, so cardinality stays bounded.
	filterHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_filter_hits_total",
			Help: "Input texts rejected by the content-safety filter, by rule.",
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, regenerationsTotal, filterHitsTotal)
}
