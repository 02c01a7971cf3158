package port

import "context"

// NotificationIntent is what the engine emits instead of talking to a
// delivery channel itself. Dispatch is fire-and-forget: a failing Notify
// never rolls back or blocks the state transition that produced it.
type NotificationIntent struct {
	InstanceID  string
	RecipientID string
	Kind        string // pending | reminder | escalation | approved | rejected
	Channel     string
}

// Notifier dispatches alerts to approvers and requesters. Implementations
// live outside the engine (email, chat, webhooks).
type Notifier interface {
	Notify(ctx context.Context, intent NotificationIntent) error
}

// Outcome is the terminal result of an approval instance, delivered to the
// consuming business object. The engine knows nothing about what a consumer
// does with it.
type Outcome struct {
	InstanceID  string
	RequestType string
	RequestID   string
	Outcome     string // approved | rejected
}

// OutcomeSink consumes terminal approval outcomes. The request-type handler
// registry is the in-process implementation.
type OutcomeSink interface {
	HandleOutcome(ctx context.Context, outcome Outcome) error
}
