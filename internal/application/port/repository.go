package port

import (
	"context"
	"errors"

	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// ErrStaleVersion is returned by conditional instance updates when the
// persisted version no longer matches the one the caller read. The losing
// caller should retry against refreshed state.
var ErrStaleVersion = errors.New("stale instance version")

// InstanceRepository defines persistence operations for ApprovalInstance.
// Implementations load and store the aggregate as a whole (instance row plus
// chain steps); Get* return (nil, nil) when no row exists.
type InstanceRepository interface {
	Create(ctx context.Context, instance *entity.ApprovalInstance) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalInstance, error)

	// GetOpenByRequest returns the open (pending or escalated) instance for a
	// (requestType, requestID) pair, if one exists. At most one may be open.
	GetOpenByRequest(ctx context.Context, requestType, requestID string) (*entity.ApprovalInstance, error)

	// ListOpen returns open instances for the escalation sweep.
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.ApprovalInstance, error)

	// Update persists the instance's mutable state (status, current level,
	// chain steps, SLA) conditional on expectedVersion and bumps the version.
	// Returns ErrStaleVersion when the condition fails.
	Update(ctx context.Context, instance *entity.ApprovalInstance, expectedVersion int64) error
}

// DefinitionRepository exposes the read-only workflow definition store.
type DefinitionRepository interface {
	// ListActiveByRequestType returns active definitions ordered by
	// descending priority then descending last-updated timestamp.
	ListActiveByRequestType(ctx context.Context, requestType string) ([]*entity.WorkflowDefinition, error)
}

// HistoryRepository defines the append-only decision trail store.
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	ListByInstanceID(ctx context.Context, instanceID string) ([]*entity.HistoryEntry, error)
}

// NotificationLogRepository defines the append-only notification log store.
type NotificationLogRepository interface {
	Append(ctx context.Context, record *entity.NotificationRecord) error
	ListByInstanceID(ctx context.Context, instanceID string) ([]*entity.NotificationRecord, error)
}

// UserRepository exposes the read-only identity/role directory.
// Get* and find operations return (nil, nil) when nobody matches.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// FirstActiveByRole returns the earliest-created active user holding the
	// given directory role.
	FirstActiveByRole(ctx context.Context, role string) (*entity.User, error)

	// FirstActivePayrollManager returns the earliest-created active user with
	// the payroll-management capability.
	FirstActivePayrollManager(ctx context.Context) (*entity.User, error)

	// DepartmentHead returns the earliest-created active manager-role user in
	// the given department.
	DepartmentHead(ctx context.Context, department string) (*entity.User, error)
}

// OnboardingRepository defines persistence for the gated onboarding record.
type OnboardingRepository interface {
	Create(ctx context.Context, record *entity.OnboardingRecord) error
	GetByID(ctx context.Context, id string) (*entity.OnboardingRecord, error)
	UpdateStatus(ctx context.Context, id, status string, canReRequest bool) error
	AppendAudit(ctx context.Context, audit *entity.OnboardingAudit) error
	ListAudit(ctx context.Context, onboardingID string) ([]*entity.OnboardingAudit, error)
}

// LeaveRepository defines persistence for gated leave requests.
type LeaveRepository interface {
	GetByID(ctx context.Context, id string) (*entity.LeaveRequest, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
