package entity

import "time"

// Onboarding record statuses. The allowed-transition table lives in the gate
// package; terminal statuses have an empty allowed set.
const (
	OnboardingStatusDraft             = "draft"
	OnboardingStatusPendingApproval   = "pending_approval"
	OnboardingStatusApprovalRejected  = "approval_rejected"
	OnboardingStatusOfferPending      = "offer_pending"
	OnboardingStatusOfferSent         = "offer_sent"
	OnboardingStatusOfferAccepted     = "offer_accepted"
	OnboardingStatusCompleted         = "completed"
	OnboardingStatusRejected          = "rejected"
	OnboardingStatusCancelled         = "cancelled"
)

// OnboardingAudit is one append-only entry in an onboarding record's trail.
type OnboardingAudit struct {
	ID             int64                  `json:"id"`
	OnboardingID   string                 `json:"onboarding_id"`
	Action         string                 `json:"action"`
	Description    string                 `json:"description,omitempty"`
	Actor          string                 `json:"actor"`
	PreviousStatus string                 `json:"previous_status"`
	NewStatus      string                 `json:"new_status"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// OnboardingRecord is the business object gated by onboarding approval
// outcomes. Its status only moves along the gate's transition table.
type OnboardingRecord struct {
	ID           string    `json:"id"`
	CandidateID  string    `json:"candidate_id"`
	Position     string    `json:"position"`
	Department   string    `json:"department"`
	RequesterID  string    `json:"requester_id"`
	Status       string    `json:"status"`
	CanReRequest bool      `json:"can_re_request"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Leave request statuses driven by the leave approval handler.
const (
	LeaveStatusPendingApproval = "pending_approval"
	LeaveStatusApproved        = "approved"
	LeaveStatusRejected        = "rejected"
)

// LeaveRequest is a second gated business object; it exists to keep the
// request-type handler registry honest about more than one consumer.
type LeaveRequest struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	LeaveType  string    `json:"leave_type"`
	Days       float64   `json:"days"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
