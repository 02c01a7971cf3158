package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/domain/event"
)

// sweepBatchSize bounds how many open instances are loaded per page.
const sweepBatchSize = 100

// RunEscalationSweep walks every open instance and escalates those whose
// current step is past due. Escalation is advisory: it flags the breach and
// notifies, but never reassigns the approver or advances the level. The
// sweep is idempotent — an already-escalated step is skipped, and a version
// conflict with a concurrent approver action is dropped silently because the
// decision supersedes the breach.
func (e *Engine) RunEscalationSweep(ctx context.Context) ([]string, error) {
	var escalated []string

	for offset := 0; ; offset += sweepBatchSize {
		instances, err := e.instances.ListOpen(ctx, sweepBatchSize, offset)
		if err != nil {
			return escalated, fmt.Errorf("list open instances: %w", err)
		}
		if len(instances) == 0 {
			break
		}

		for _, instance := range instances {
			ok, err := e.escalateIfOverdue(ctx, instance)
			if err != nil {
				e.logger.Error("Escalation failed", "error", err, "instance_id", instance.ID)
				continue
			}
			if ok {
				escalated = append(escalated, instance.ID)
			}
		}

		if len(instances) < sweepBatchSize {
			break
		}
	}

	return escalated, nil
}

func (e *Engine) escalateIfOverdue(ctx context.Context, instance *entity.ApprovalInstance) (bool, error) {
	step := instance.CurrentStep()
	if step == nil || step.Status != entity.StepStatusPending {
		return false, nil
	}
	if step.SLA.IsEscalated {
		return false, nil
	}

	now := e.now()
	if !now.After(step.SLA.DueAt) {
		return false, nil
	}

	expectedVersion := instance.Version
	step.SLA.IsEscalated = true
	instance.Status = entity.InstanceStatusEscalated
	instance.SLA.IsBreached = true
	instance.SLA.BreachReason = fmt.Sprintf("level %d overdue since %s", step.Level, step.SLA.DueAt.Format("2006-01-02T15:04:05Z07:00"))
	instance.UpdatedAt = now

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.instances.Update(txCtx, instance, expectedVersion); err != nil {
			return err
		}
		return e.history.Append(txCtx, &entity.HistoryEntry{
			InstanceID: instance.ID,
			Action:     entity.HistoryActionEscalated,
			Actor:      "system",
			Level:      step.Level,
			Details:    instance.SLA.BreachReason,
			Timestamp:  now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrStaleInstanceState) {
			// An approver acted between the read and the write; their
			// decision wins and the breach no longer applies.
			return false, nil
		}
		return false, err
	}

	e.metrics.InstanceEscalated()
	e.notify(ctx, instance.ID, step.ApproverID, entity.NotificationKindEscalation)
	e.emit(ctx, event.New(event.TypeInstanceEscalated, instance.ID, map[string]interface{}{
		"level":  step.Level,
		"due_at": step.SLA.DueAt,
	}))

	e.logger.Info("Instance escalated",
		"instance_id", instance.ID,
		"level", step.Level,
		"due_at", step.SLA.DueAt,
	)
	return true, nil
}
