package engine

import (
	"errors"

	"github.com/talentoak/approval-engine/internal/application/port"
)

var (
	// ErrInstanceNotFound is returned when the instance ID is unknown.
	ErrInstanceNotFound = errors.New("approval instance not found")

	// ErrNoPendingApprover is returned when the instance is terminal or its
	// current step is not pending. Re-invoking ProcessApproval on a finished
	// instance fails with this rather than mutating history again.
	ErrNoPendingApprover = errors.New("no pending approver at current level")

	// ErrNotAuthorized is returned when the actor is not the resolved
	// approver of the current step.
	ErrNotAuthorized = errors.New("actor is not the current approver")

	// ErrInvalidDecision is returned for decisions outside approve/reject.
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrDuplicatePending is returned when an open instance already exists
	// for the same (requestType, requestID) pair.
	ErrDuplicatePending = errors.New("an open approval instance already exists for this request")

	// ErrStaleInstanceState is returned when a concurrent mutation won the
	// version check; the caller should retry against refreshed state.
	ErrStaleInstanceState = port.ErrStaleVersion
)
