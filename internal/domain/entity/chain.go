package entity

import "time"

// StepSLA tracks the deadline state of a single chain step. DueAt and
// EscalateAt are re-based to the moment the step becomes current, not the
// moment the instance was created.
type StepSLA struct {
	// Effective budgets after defaulting, retained so deadlines can be
	// recomputed when the step becomes current.
	SLAHours        float64 `json:"sla_hours"`
	EscalationHours float64 `json:"escalation_hours"`

	DueAt       time.Time `json:"due_at"`
	EscalateAt  time.Time `json:"escalate_at"`
	IsEscalated bool      `json:"is_escalated"`
	EscalatedTo string    `json:"escalated_to,omitempty"`
}

// ChainStep is one approval level materialized inside an instance.
// Levels are 1-based and contiguous.
type ChainStep struct {
	Level      int        `json:"level"`
	Role       string     `json:"role"`
	ApproverID string     `json:"approver_id"`
	Status     string     `json:"status"`
	ActionAt   *time.Time `json:"action_at,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	SLA        StepSLA    `json:"sla"`
}
