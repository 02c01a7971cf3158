package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talentoak/approval-engine/internal/domain/entity"
)

var (
	// ErrEmptyWorkflow is returned when a definition expands to zero steps.
	// A zero-level approval must never be created.
	ErrEmptyWorkflow = errors.New("workflow definition has no steps")

	// ErrUnresolvedApprover is returned when a step's abstract role resolves
	// to nobody. Creation is blocked rather than parking an unassignable
	// step in the chain.
	ErrUnresolvedApprover = errors.New("approver could not be resolved")
)

// UnresolvedApproverError names the role and level that failed to resolve.
type UnresolvedApproverError struct {
	Role  string
	Level int
}

func (e *UnresolvedApproverError) Error() string {
	return fmt.Sprintf("approver could not be resolved: role %s at level %d", e.Role, e.Level)
}

func (e *UnresolvedApproverError) Unwrap() error {
	return ErrUnresolvedApprover
}

// Defaults applied when a step definition leaves its budgets unspecified.
const (
	DefaultSLAHours             = 24.0
	DefaultEscalationGraceHours = 12.0
)

// ApproverResolver maps an abstract role to a concrete identity.
// (nil, nil) means nobody matched.
type ApproverResolver interface {
	Resolve(ctx context.Context, role string, requester *entity.User) (*entity.User, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Builder expands a workflow definition into a concrete approval chain.
type Builder struct {
	resolver ApproverResolver
	logger   Logger
}

// NewBuilder creates a chain builder.
func NewBuilder(resolver ApproverResolver, logger Logger) *Builder {
	return &Builder{
		resolver: resolver,
		logger:   logger,
	}
}

// Build resolves every declared step into a chain entry and stamps initial
// deadlines. Only the level-1 deadlines are authoritative; later steps are
// re-based to the moment they become current.
func (b *Builder) Build(ctx context.Context, def *entity.WorkflowDefinition, requester *entity.User, now time.Time) ([]*entity.ChainStep, error) {
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("%w: definition %s", ErrEmptyWorkflow, def.ID)
	}

	steps := make([]*entity.ChainStep, 0, len(def.Steps))
	for i, stepDef := range def.Steps {
		level := i + 1

		approver, err := b.resolver.Resolve(ctx, stepDef.Role, requester)
		if err != nil {
			return nil, fmt.Errorf("resolve %s at level %d: %w", stepDef.Role, level, err)
		}
		if approver == nil {
			b.logger.Error("Approver resolution returned nobody",
				"role", stepDef.Role,
				"level", level,
				"requester_id", requester.ID,
			)
			return nil, &UnresolvedApproverError{Role: stepDef.Role, Level: level}
		}

		step := &entity.ChainStep{
			Level:      level,
			Role:       stepDef.Role,
			ApproverID: approver.ID,
			Status:     entity.StepStatusPending,
			SLA:        newStepSLA(stepDef, now),
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// newStepSLA applies budget defaults and stamps deadlines from start.
func newStepSLA(def entity.StepDefinition, start time.Time) entity.StepSLA {
	slaHours := def.SLAHours
	if slaHours <= 0 {
		slaHours = DefaultSLAHours
	}

	escalationHours := def.EscalationHours
	if escalationHours <= 0 {
		escalationHours = slaHours + DefaultEscalationGraceHours
	}

	return entity.StepSLA{
		SLAHours:        slaHours,
		EscalationHours: escalationHours,
		DueAt:           start.Add(hours(slaHours)),
		EscalateAt:      start.Add(hours(escalationHours)),
	}
}

// Rebase restamps a step's deadlines to the moment it becomes current.
func Rebase(step *entity.ChainStep, now time.Time) {
	step.SLA.DueAt = now.Add(hours(step.SLA.SLAHours))
	step.SLA.EscalateAt = now.Add(hours(step.SLA.EscalationHours))
}

// ExpectedCompletion is the coarse overall deadline: the start time plus the
// sum of every step's budget.
func ExpectedCompletion(steps []*entity.ChainStep, start time.Time) time.Time {
	var total float64
	for _, step := range steps {
		total += step.SLA.SLAHours
	}
	return start.Add(hours(total))
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
