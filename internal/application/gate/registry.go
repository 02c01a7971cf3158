package gate

import (
	"context"
	"fmt"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
)

// Registry routes terminal approval outcomes to the handler registered for
// the request type. It is the engine's OutcomeSink.
type Registry struct {
	handlers map[string]RequestTypeHandler
	logger   Logger
}

var _ port.OutcomeSink = (*Registry)(nil)

// NewRegistry creates an outcome registry with a fixed handler set.
func NewRegistry(logger Logger, handlers map[string]RequestTypeHandler) *Registry {
	return &Registry{
		handlers: handlers,
		logger:   logger,
	}
}

// HandleOutcome dispatches the outcome to its request-type handler. An
// unregistered request type is an error: an approval ran for a business
// object nobody consumes.
func (r *Registry) HandleOutcome(ctx context.Context, outcome port.Outcome) error {
	handler, ok := r.handlers[outcome.RequestType]
	if !ok {
		return fmt.Errorf("no outcome handler registered for request type %q", outcome.RequestType)
	}

	r.logger.Info("Dispatching approval outcome",
		"request_type", outcome.RequestType,
		"request_id", outcome.RequestID,
		"outcome", outcome.Outcome,
	)

	switch outcome.Outcome {
	case entity.OutcomeApproved:
		return handler.OnApproved(ctx, outcome)
	case entity.OutcomeRejected:
		return handler.OnRejected(ctx, outcome)
	default:
		return fmt.Errorf("unknown outcome %q for instance %s", outcome.Outcome, outcome.InstanceID)
	}
}
