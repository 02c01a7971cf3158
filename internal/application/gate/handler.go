package gate

import (
	"context"
	"fmt"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// RequestTypeLeave is the request type leave approvals run under.
const RequestTypeLeave = "leave"

// RequestTypeHandler consumes a terminal approval outcome for one request
// type and applies it to the owning business object.
type RequestTypeHandler interface {
	OnApproved(ctx context.Context, outcome port.Outcome) error
	OnRejected(ctx context.Context, outcome port.Outcome) error
}

// OnboardingHandler applies approval outcomes to onboarding records: approval
// moves the record toward an offer, rejection parks it where the requester
// may re-request.
type OnboardingHandler struct {
	service *OnboardingService
}

// NewOnboardingHandler creates the onboarding outcome handler.
func NewOnboardingHandler(service *OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

func (h *OnboardingHandler) OnApproved(ctx context.Context, outcome port.Outcome) error {
	_, err := h.service.Transition(ctx, outcome.RequestID, entity.OnboardingStatusOfferPending,
		"system", "approval chain approved", map[string]interface{}{
			"instance_id": outcome.InstanceID,
		})
	return err
}

func (h *OnboardingHandler) OnRejected(ctx context.Context, outcome port.Outcome) error {
	_, err := h.service.Transition(ctx, outcome.RequestID, entity.OnboardingStatusApprovalRejected,
		"system", "approval chain rejected", map[string]interface{}{
			"instance_id": outcome.InstanceID,
		})
	return err
}

// LeaveHandler applies approval outcomes to leave requests.
type LeaveHandler struct {
	leaves port.LeaveRepository
	logger Logger
}

// NewLeaveHandler creates the leave outcome handler.
func NewLeaveHandler(leaves port.LeaveRepository, logger Logger) *LeaveHandler {
	return &LeaveHandler{leaves: leaves, logger: logger}
}

func (h *LeaveHandler) OnApproved(ctx context.Context, outcome port.Outcome) error {
	return h.setStatus(ctx, outcome, entity.LeaveStatusApproved)
}

func (h *LeaveHandler) OnRejected(ctx context.Context, outcome port.Outcome) error {
	return h.setStatus(ctx, outcome, entity.LeaveStatusRejected)
}

func (h *LeaveHandler) setStatus(ctx context.Context, outcome port.Outcome, status string) error {
	if err := h.leaves.UpdateStatus(ctx, outcome.RequestID, status); err != nil {
		return fmt.Errorf("update leave request %s: %w", outcome.RequestID, err)
	}
	h.logger.Info("Leave request resolved",
		"leave_id", outcome.RequestID,
		"status", status,
		"instance_id", outcome.InstanceID,
	)
	return nil
}
