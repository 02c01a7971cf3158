package entity

// Status constants for ApprovalInstance
const (
	InstanceStatusPending   = "PENDING"
	InstanceStatusEscalated = "ESCALATED" // open sub-state of PENDING with a breached SLA
	InstanceStatusApproved  = "APPROVED"
	InstanceStatusRejected  = "REJECTED"
	InstanceStatusCancelled = "CANCELLED"
)

// Status constants for ChainStep
const (
	StepStatusPending   = "PENDING"
	StepStatusApproved  = "APPROVED"
	StepStatusRejected  = "REJECTED"
	StepStatusSkipped   = "SKIPPED"
	StepStatusDelegated = "DELEGATED"
)

// Decision constants for ProcessApproval
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// History action constants
const (
	HistoryActionCreated   = "CREATED"
	HistoryActionApproved  = "APPROVED"
	HistoryActionRejected  = "REJECTED"
	HistoryActionEscalated = "ESCALATED"
	HistoryActionCancelled = "CANCELLED"
)

// Abstract approver roles resolvable by the identity resolver
const (
	RoleEmployee       = "employee"
	RoleManager        = "manager"
	RoleHR             = "hr"
	RoleAdmin          = "admin"
	RoleCompanyAdmin   = "company_admin"
	RoleCEO            = "ceo"
	RoleFinance        = "finance"
	RoleDepartmentHead = "department_head"
)

// Notification kind constants
const (
	NotificationKindPending    = "pending"
	NotificationKindReminder   = "reminder"
	NotificationKindEscalation = "escalation"
	NotificationKindApproved   = "approved"
	NotificationKindRejected   = "rejected"
)

// Condition operator constants for workflow definition matching
const (
	OperatorEquals             = "equals"
	OperatorNotEquals          = "not_equals"
	OperatorGreaterThan        = "greater_than"
	OperatorLessThan           = "less_than"
	OperatorGreaterThanOrEqual = "greater_than_or_equal"
	OperatorLessThanOrEqual    = "less_than_or_equal"
	OperatorIn                 = "in"
	OperatorNotIn              = "not_in"
)

// Outcome constants delivered to business-object gates
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)
