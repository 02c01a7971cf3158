package entity

import "time"

// StepDefinition declares one approval level inside a workflow definition.
// SLAHours and EscalationHours may be zero; the chain builder applies defaults.
type StepDefinition struct {
	Role            string  `json:"role"`
	SLAHours        float64 `json:"sla_hours"`
	EscalationHours float64 `json:"escalation_hours"`
}

// Condition is one boolean predicate a request's attributes must satisfy
// for a workflow definition to be selected. Field is a dotted path into
// the attribute bag.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// WorkflowDefinition is an administrator-owned approval route configuration.
// The engine treats definitions as read-only.
type WorkflowDefinition struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	RequestType   string           `json:"request_type"`
	RequesterRole string           `json:"requester_role,omitempty"` // empty = applies to any requester
	Steps         []StepDefinition `json:"steps"`
	Conditions    []Condition      `json:"conditions"`
	Priority      int              `json:"priority"`
	Active        bool             `json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
