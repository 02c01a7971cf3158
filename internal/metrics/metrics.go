// Package metrics implements the engine's metrics sink on top of a dedicated
// prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine counters. It registers everything on its own
// registry so tests and the HTTP handler see the same collector set.
type Metrics struct {
	registry *prometheus.Registry

	instancesCreated     *prometheus.CounterVec
	decisionsProcessed   *prometheus.CounterVec
	instancesEscalated   prometheus.Counter
	unresolvedApprovers  *prometheus.CounterVec
	notificationFailures prometheus.Counter
}

// New creates a metrics sink backed by a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		instancesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approval_engine",
			Name:      "instances_created_total",
			Help:      "Approval instances created, by request type.",
		}, []string{"request_type"}),
		decisionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approval_engine",
			Name:      "decisions_processed_total",
			Help:      "Approver decisions applied, by decision.",
		}, []string{"decision"}),
		instancesEscalated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "approval_engine",
			Name:      "instances_escalated_total",
			Help:      "Instances escalated by the SLA sweep.",
		}),
		unresolvedApprovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "approval_engine",
			Name:      "unresolved_approvers_total",
			Help:      "Chain builds blocked by an unresolvable approver role.",
		}, []string{"role"}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "approval_engine",
			Name:      "notification_failures_total",
			Help:      "Notification intents that failed to dispatch.",
		}),
	}

	m.registry.MustRegister(
		m.instancesCreated,
		m.decisionsProcessed,
		m.instancesEscalated,
		m.unresolvedApprovers,
		m.notificationFailures,
	)
	return m
}

// Registry exposes the underlying registry for the HTTP scrape handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) InstanceCreated(requestType string) {
	m.instancesCreated.WithLabelValues(requestType).Inc()
}

func (m *Metrics) DecisionProcessed(decision string) {
	m.decisionsProcessed.WithLabelValues(decision).Inc()
}

func (m *Metrics) InstanceEscalated() {
	m.instancesEscalated.Inc()
}

func (m *Metrics) UnresolvedApprover(role string) {
	m.unresolvedApprovers.WithLabelValues(role).Inc()
}

func (m *Metrics) NotificationFailure() {
	m.notificationFailures.Inc()
}
