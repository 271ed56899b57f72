// Package metrics holds the Prometheus collectors for the client core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the client's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	// Dispatches counts real network calls by outcome.
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eva",
			Subsystem: "request",
			Name:      "dispatches_total",
			Help:      "Total number of network calls dispatched, by outcome.",
		},
		[]string{"method", "outcome"},
	)

	// Coalesced counts callers that were served by another caller's dispatch.
	Coalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eva",
			Subsystem: "request",
			Name:      "coalesced_total",
			Help:      "Total number of calls served by an already in-flight dispatch.",
		},
	)

	// Waiting is the number of callers currently waiting on a dispatch.
	Waiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eva",
			Subsystem: "request",
			Name:      "waiting_callers",
			Help:      "Current number of callers waiting on an in-flight dispatch.",
		},
	)

	// DispatchDuration observes network call latency.
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eva",
			Subsystem: "request",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of dispatched network calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method"},
	)

	// CacheLookups counts cache reads by result (hit, miss, expired, corrupt).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eva",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		Dispatches,
		Coalesced,
		Waiting,
		DispatchDuration,
		CacheLookups,
	)
}

// Counters flattens the registry's counters and gauges into name -> value,
// with label pairs appended as name{k=v,...}.
func Counters() (map[string]float64, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			name := fam.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				name += "{"
				for i, l := range labels {
					if i > 0 {
						name += ","
					}
					name += l.GetName() + "=" + l.GetValue()
				}
				name += "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[name+"_count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
