package entity

import "time"

// SLAStatus summarizes deadline state across the whole instance.
type SLAStatus struct {
	StartedAt            time.Time  `json:"started_at"`
	ExpectedCompletionAt time.Time  `json:"expected_completion_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	IsBreached           bool       `json:"is_breached"`
	BreachReason         string     `json:"breach_reason,omitempty"`
}

// ApprovalInstance is the aggregate root of one in-flight or completed
// approval request against a business record. It is mutated only by the
// engine's ProcessApproval/Cancel operations and the SLA sweep; it is never
// deleted, only ever terminal.
type ApprovalInstance struct {
	ID          string                 `json:"id"`
	RequestType string                 `json:"request_type"`
	RequestID   string                 `json:"request_id"`
	RequesterID string                 `json:"requester_id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      string                 `json:"status"`
	CurrentLevel int                   `json:"current_level"`
	TotalLevels  int                   `json:"total_levels"`
	Chain       []*ChainStep           `json:"chain"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	SLA         SLAStatus              `json:"sla"`
	// Version guards read-modify-write races; every persisted mutation is
	// conditional on the version the caller read.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the instance still accepts approver actions.
// ESCALATED is an open sub-state of PENDING.
func (i *ApprovalInstance) IsOpen() bool {
	return i.Status == InstanceStatusPending || i.Status == InstanceStatusEscalated
}

// IsTerminal reports whether the instance has reached a final status.
func (i *ApprovalInstance) IsTerminal() bool {
	return !i.IsOpen()
}

// CurrentStep returns the chain step at CurrentLevel, or nil if the pointer
// is out of range.
func (i *ApprovalInstance) CurrentStep() *ChainStep {
	if i.CurrentLevel < 1 || i.CurrentLevel > len(i.Chain) {
		return nil
	}
	return i.Chain[i.CurrentLevel-1]
}

// StepAt returns the chain step with the given 1-based level, or nil.
func (i *ApprovalInstance) StepAt(level int) *ChainStep {
	if level < 1 || level > len(i.Chain) {
		return nil
	}
	return i.Chain[level-1]
}
