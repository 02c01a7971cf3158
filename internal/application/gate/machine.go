package gate

import (
	"fmt"
	"strings"

	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/domain/statemachine"
)

// InvalidTransitionError reports a status move the onboarding table forbids,
// including the moves that would have been legal from the current status.
type InvalidTransitionError struct {
	Current   string
	Requested string
	Allowed   []string
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot move onboarding from terminal status %s to %s", e.Current, e.Requested)
	}
	return fmt.Sprintf("cannot move onboarding from %s to %s (allowed: %s)",
		e.Current, e.Requested, strings.Join(e.Allowed, ", "))
}

// onboardingTable builds the onboarding status transition table. Triggers are
// named after the target status, so firing Trigger(status) attempts the move.
// completed, rejected and cancelled are terminal: no outgoing transitions.
func onboardingTable() statemachine.Builder {
	b := statemachine.NewBuilder()

	permit := func(from string, targets ...string) {
		cfg := b.Configure(statemachine.State(from))
		for _, to := range targets {
			cfg.Permit(statemachine.Trigger(to), statemachine.State(to))
		}
	}

	permit(entity.OnboardingStatusDraft,
		entity.OnboardingStatusPendingApproval,
		entity.OnboardingStatusCancelled)
	permit(entity.OnboardingStatusPendingApproval,
		entity.OnboardingStatusOfferPending,
		entity.OnboardingStatusApprovalRejected,
		entity.OnboardingStatusCancelled)
	permit(entity.OnboardingStatusApprovalRejected,
		entity.OnboardingStatusPendingApproval,
		entity.OnboardingStatusCancelled)
	permit(entity.OnboardingStatusOfferPending,
		entity.OnboardingStatusOfferSent,
		entity.OnboardingStatusCancelled)
	permit(entity.OnboardingStatusOfferSent,
		entity.OnboardingStatusOfferAccepted,
		entity.OnboardingStatusRejected,
		entity.OnboardingStatusCancelled)
	permit(entity.OnboardingStatusOfferAccepted,
		entity.OnboardingStatusCompleted,
		entity.OnboardingStatusCancelled)

	b.Configure(statemachine.State(entity.OnboardingStatusCompleted))
	b.Configure(statemachine.State(entity.OnboardingStatusRejected))
	b.Configure(statemachine.State(entity.OnboardingStatusCancelled))

	return b
}

// machineAt positions a fresh machine at the given status.
func machineAt(table statemachine.Builder, status string) statemachine.Machine {
	return table.Build(statemachine.State(status))
}

func allowedStrings(m statemachine.Machine) []string {
	states := m.AllowedStates()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
