package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/domain/statemachine"
)

// RequestTypeOnboarding is the request type onboarding approvals run under.
const RequestTypeOnboarding = "onboarding"

// ErrOnboardingNotFound is returned when the onboarding record ID is unknown.
var ErrOnboardingNotFound = errors.New("onboarding record not found")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ApprovalStarter is the slice of the engine the gate needs to kick off an
// approval. The engine guarantees at most one open instance per request.
type ApprovalStarter interface {
	CreateInstance(ctx context.Context, requestType, requestID, requesterID string, attributes map[string]interface{}) (*entity.ApprovalInstance, error)
}

// OnboardingService moves onboarding records along the status table and wires
// the pending_approval status to the approval engine. Every move appends an
// audit entry with the previous and new status.
type OnboardingService struct {
	records   port.OnboardingRepository
	approvals ApprovalStarter
	txManager port.TransactionManager
	table     statemachine.Builder
	logger    Logger
	now       func() time.Time
}

// NewOnboardingService creates the onboarding gate service.
func NewOnboardingService(
	records port.OnboardingRepository,
	approvals ApprovalStarter,
	txManager port.TransactionManager,
	logger Logger,
) *OnboardingService {
	return &OnboardingService{
		records:   records,
		approvals: approvals,
		txManager: txManager,
		table:     onboardingTable(),
		logger:    logger,
		now:       time.Now,
	}
}

// Create persists a new draft onboarding record.
func (s *OnboardingService) Create(ctx context.Context, candidateID, position, department, requesterID string) (*entity.OnboardingRecord, error) {
	now := s.now()
	record := &entity.OnboardingRecord{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Position:    position,
		Department:  department,
		RequesterID: requesterID,
		Status:      entity.OnboardingStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.records.Create(txCtx, record); err != nil {
			return fmt.Errorf("create onboarding record: %w", err)
		}
		return s.records.AppendAudit(txCtx, &entity.OnboardingAudit{
			OnboardingID: record.ID,
			Action:       "created",
			Actor:        requesterID,
			NewStatus:    entity.OnboardingStatusDraft,
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Onboarding record created", "onboarding_id", record.ID, "candidate_id", candidateID)
	return record, nil
}

// Get returns an onboarding record by ID.
func (s *OnboardingService) Get(ctx context.Context, id string) (*entity.OnboardingRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrOnboardingNotFound, id)
	}
	return record, nil
}

// GetAudit returns the record's audit trail in append order.
func (s *OnboardingService) GetAudit(ctx context.Context, id string) ([]*entity.OnboardingAudit, error) {
	return s.records.ListAudit(ctx, id)
}

// RequestApproval moves the record to pending_approval and opens an approval
// instance for it. Legal from draft and from approval_rejected (re-request).
func (s *OnboardingService) RequestApproval(ctx context.Context, id, actorID string, attributes map[string]interface{}) (*entity.ApprovalInstance, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Validate the move before opening the instance, so a record in the wrong
	// status never spawns an approval.
	if err := s.fire(record.Status, entity.OnboardingStatusPendingApproval); err != nil {
		return nil, err
	}

	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	attributes["department"] = record.Department
	attributes["position"] = record.Position

	instance, err := s.approvals.CreateInstance(ctx, RequestTypeOnboarding, record.ID, actorID, attributes)
	if err != nil {
		return nil, err
	}

	err = s.transition(ctx, record, entity.OnboardingStatusPendingApproval, actorID, "approval requested", map[string]interface{}{
		"instance_id": instance.ID,
	})
	if err != nil {
		return nil, err
	}

	return instance, nil
}

// Transition moves the record to newStatus if the table allows it.
func (s *OnboardingService) Transition(ctx context.Context, id, newStatus, actorID, description string, metadata map[string]interface{}) (*entity.OnboardingRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, record, newStatus, actorID, description, metadata); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *OnboardingService) fire(current, requested string) error {
	m := machineAt(s.table, current)
	if err := m.Fire(context.Background(), statemachine.Trigger(requested)); err != nil {
		return &InvalidTransitionError{
			Current:   current,
			Requested: requested,
			Allowed:   allowedStrings(machineAt(s.table, current)),
		}
	}
	return nil
}

// transition validates, persists and audits one status move. Mutates record
// in place on success. approval_rejected is the only status that opens the
// re-request door.
func (s *OnboardingService) transition(ctx context.Context, record *entity.OnboardingRecord, newStatus, actorID, description string, metadata map[string]interface{}) error {
	if err := s.fire(record.Status, newStatus); err != nil {
		return err
	}

	previous := record.Status
	canReRequest := newStatus == entity.OnboardingStatusApprovalRejected
	now := s.now()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.records.UpdateStatus(txCtx, record.ID, newStatus, canReRequest); err != nil {
			return fmt.Errorf("update onboarding status: %w", err)
		}
		return s.records.AppendAudit(txCtx, &entity.OnboardingAudit{
			OnboardingID:   record.ID,
			Action:         "status_changed",
			Description:    description,
			Actor:          actorID,
			PreviousStatus: previous,
			NewStatus:      newStatus,
			Metadata:       metadata,
			Timestamp:      now,
		})
	})
	if err != nil {
		return err
	}

	record.Status = newStatus
	record.CanReRequest = canReRequest
	record.UpdatedAt = now

	s.logger.Info("Onboarding status changed",
		"onboarding_id", record.ID,
		"previous_status", previous,
		"new_status", newStatus,
		"actor", actorID,
	)
	return nil
}
