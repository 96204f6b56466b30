package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// designRequests counts design runs by outcome (ok, invalid_input,
	// no_feasible, error)
	designRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ro_design_requests_total",
		Help: "Total RO array design runs by outcome",
	}, []string{"outcome"})

	designDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ro_design_duration_seconds",
		Help:    "RO array design duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	designConfigurations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ro_design_configurations",
		Help:    "Viable configurations returned per successful design",
		Buckets: prometheus.LinearBuckets(1, 1, 8),
	})
)
