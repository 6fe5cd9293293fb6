// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timeblock"

// Pass outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeContention = "contention"
	OutcomeError      = "error"
)

var (
	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_passes_total",
		Help:      "Scheduling passes by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scheduler_pass_duration_seconds",
		Help:      "Wall time of scheduling passes that held the lease.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"trigger"})

	InstancesPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instances_placed_total",
		Help:      "Schedule instances written by backlog passes.",
	})

	ItemsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_deferred_total",
		Help:      "Backlog items left unplaced because no window had room.",
	})

	ItemsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_skipped_total",
		Help:      "Malformed backlog items skipped by passes.",
	})

	InstancesMissed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instances_marked_missed_total",
		Help:      "Scheduled instances moved to missed.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
