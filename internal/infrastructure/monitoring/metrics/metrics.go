// Package metrics defines the Prometheus instrumentation for dragonctl.
// Components receive a *Metrics instance by injection; tests register
// against a private registry to stay isolated.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dragonctl"

// Metrics aggregates all collectors used across the application.
type Metrics struct {
	// Script wizard.
	ScriptsBuilt  *prometheus.CounterVec // label: version
	BuildFailures *prometheus.CounterVec // label: code (error module code)

	// External process invocation.
	LaunchesTotal  *prometheus.CounterVec // label: version
	LaunchFailures *prometheus.CounterVec // label: version

	// Descriptor jobs.
	JobsSubmitted    prometheus.Counter
	JobsCollected    prometheus.Counter
	CollectsNotReady prometheus.Counter
}

// New registers all dragonctl collectors with reg and returns them.
// Pass prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScriptsBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scripts_built_total",
			Help:      "Number of Dragon scripts successfully built.",
		}, []string{"version"}),
		BuildFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_build_failures_total",
			Help:      "Number of script builds aborted by validation or I/O errors.",
		}, []string{"code"}),
		LaunchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dragon_launches_total",
			Help:      "Number of detached Dragon shell launches.",
		}, []string{"version"}),
		LaunchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dragon_launch_failures_total",
			Help:      "Number of Dragon shell launches that failed to start.",
		}, []string{"version"}),
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Number of descriptor calculation jobs submitted.",
		}),
		JobsCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_collected_total",
			Help:      "Number of descriptor jobs whose output was collected and archived.",
		}),
		CollectsNotReady: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_collects_not_ready_total",
			Help:      "Number of collect attempts that found the Dragon output not yet written.",
		}),
	}
}

// NewNop returns a Metrics instance backed by a throwaway registry, for
// callers (and tests) that do not care about instrumentation.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
