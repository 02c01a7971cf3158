package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.InstanceCreated("onboarding")
	m.InstanceCreated("onboarding")
	m.InstanceCreated("leave")
	m.DecisionProcessed("approve")
	m.DecisionProcessed("reject")
	m.InstanceEscalated()
	m.UnresolvedApprover("manager")
	m.NotificationFailure()

	if got := testutil.ToFloat64(m.instancesCreated.WithLabelValues("onboarding")); got != 2 {
		t.Errorf("instances_created_total{request_type=onboarding} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.instancesCreated.WithLabelValues("leave")); got != 1 {
		t.Errorf("instances_created_total{request_type=leave} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.decisionsProcessed.WithLabelValues("approve")); got != 1 {
		t.Errorf("decisions_processed_total{decision=approve} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.instancesEscalated); got != 1 {
		t.Errorf("instances_escalated_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.unresolvedApprovers.WithLabelValues("manager")); got != 1 {
		t.Errorf("unresolved_approvers_total{role=manager} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notificationFailures); got != 1 {
		t.Errorf("notification_failures_total = %v, want 1", got)
	}
}

func TestRegistryExposesAllCollectors(t *testing.T) {
	m := New()
	m.InstanceCreated("onboarding")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family")
	}
}
