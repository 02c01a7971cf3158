package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talentoak/approval-engine/internal/application/chain"
	"github.com/talentoak/approval-engine/internal/application/dispatcher"
	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/application/selector"
	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics receives engine counters. The prometheus implementation lives in
// internal/metrics; tests use the nop default.
type Metrics interface {
	InstanceCreated(requestType string)
	DecisionProcessed(decision string)
	InstanceEscalated()
	UnresolvedApprover(role string)
	NotificationFailure()
}

type nopMetrics struct{}

func (nopMetrics) InstanceCreated(string)  {}
func (nopMetrics) DecisionProcessed(string) {}
func (nopMetrics) InstanceEscalated()      {}
func (nopMetrics) UnresolvedApprover(string) {}
func (nopMetrics) NotificationFailure()    {}

// Engine owns the approval instance lifecycle: creation, approver decisions,
// cancellation and the escalation sweep. All persisted mutations are
// conditional on the instance version read at the start of the operation.
type Engine struct {
	selector  *selector.Selector
	chains    *chain.Builder
	users     port.UserRepository
	instances port.InstanceRepository
	history   port.HistoryRepository
	notifyLog port.NotificationLogRepository
	txManager port.TransactionManager
	notifier  port.Notifier
	outcomes  port.OutcomeSink
	logger    Logger

	dispatcher dispatcher.Dispatcher
	metrics    Metrics
	channel    string
	now        func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithDispatcher sets the event dispatcher for structured transition events.
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithNotificationChannel sets the channel stamped on notification intents.
func WithNotificationChannel(channel string) Option {
	return func(e *Engine) {
		e.channel = channel
	}
}

// WithNow overrides the engine clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an approval engine.
func New(
	sel *selector.Selector,
	chains *chain.Builder,
	users port.UserRepository,
	instances port.InstanceRepository,
	history port.HistoryRepository,
	notifyLog port.NotificationLogRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	outcomes port.OutcomeSink,
	logger Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		selector:  sel,
		chains:    chains,
		users:     users,
		instances: instances,
		history:   history,
		notifyLog: notifyLog,
		txManager: txManager,
		notifier:  notifier,
		outcomes:  outcomes,
		logger:    logger,
		metrics:   nopMetrics{},
		channel:   "email",
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// CreateInstance selects the applicable workflow, materializes the approval
// chain and persists a new pending instance at level 1. Exactly one open
// instance may exist per (requestType, requestID).
func (e *Engine) CreateInstance(ctx context.Context, requestType, requestID, requesterID string, attributes map[string]interface{}) (*entity.ApprovalInstance, error) {
	requester, err := e.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("load requester %s: %w", requesterID, err)
	}
	if requester == nil {
		return nil, fmt.Errorf("requester %s not found", requesterID)
	}

	open, err := e.instances.GetOpenByRequest(ctx, requestType, requestID)
	if err != nil {
		return nil, fmt.Errorf("check open instance: %w", err)
	}
	if open != nil {
		return nil, fmt.Errorf("%w: instance %s", ErrDuplicatePending, open.ID)
	}

	def, err := e.selector.Select(ctx, requestType, requester.Role, attributes)
	if err != nil {
		return nil, err
	}

	now := e.now()
	steps, err := e.chains.Build(ctx, def, requester, now)
	if err != nil {
		var unresolved *chain.UnresolvedApproverError
		if errors.As(err, &unresolved) {
			e.metrics.UnresolvedApprover(unresolved.Role)
		}
		return nil, err
	}

	instance := &entity.ApprovalInstance{
		ID:           uuid.NewString(),
		RequestType:  requestType,
		RequestID:    requestID,
		RequesterID:  requesterID,
		WorkflowID:   def.ID,
		Status:       entity.InstanceStatusPending,
		CurrentLevel: 1,
		TotalLevels:  len(steps),
		Chain:        steps,
		Attributes:   attributes,
		SLA: entity.SLAStatus{
			StartedAt:            now,
			ExpectedCompletionAt: chain.ExpectedCompletion(steps, now),
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.instances.Create(txCtx, instance); err != nil {
			return fmt.Errorf("create instance: %w", err)
		}
		return e.history.Append(txCtx, &entity.HistoryEntry{
			InstanceID: instance.ID,
			Action:     entity.HistoryActionCreated,
			Actor:      requesterID,
			Level:      1,
			Details:    fmt.Sprintf("workflow %s, %d levels", def.ID, len(steps)),
			Timestamp:  now,
		})
	})
	if err != nil {
		e.logger.Error("Failed to create instance", "error", err, "request_type", requestType, "request_id", requestID)
		return nil, err
	}

	e.metrics.InstanceCreated(requestType)
	e.notify(ctx, instance.ID, steps[0].ApproverID, entity.NotificationKindPending)
	e.emit(ctx, event.New(event.TypeInstanceCreated, instance.ID, map[string]interface{}{
		"request_type": requestType,
		"request_id":   requestID,
		"total_levels": instance.TotalLevels,
	}))

	e.logger.Info("Approval instance created",
		"instance_id", instance.ID,
		"request_type", requestType,
		"request_id", requestID,
		"total_levels", instance.TotalLevels,
	)
	return instance, nil
}

// ProcessApproval applies one approver decision to the current chain step.
// Rejection is terminal regardless of remaining levels; approving the last
// level finalizes the instance. Concurrent decisions against the same level
// lose the version check and get ErrStaleInstanceState.
func (e *Engine) ProcessApproval(ctx context.Context, instanceID, actorID, decision, comment string) (*entity.ApprovalInstance, error) {
	if decision != entity.DecisionApprove && decision != entity.DecisionReject {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	instance, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", instanceID, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	if instance.IsTerminal() {
		return nil, fmt.Errorf("%w: instance %s is %s", ErrNoPendingApprover, instanceID, instance.Status)
	}

	step := instance.CurrentStep()
	if step == nil || step.Status != entity.StepStatusPending {
		return nil, fmt.Errorf("%w: level %d", ErrNoPendingApprover, instance.CurrentLevel)
	}
	if step.ApproverID != actorID {
		return nil, fmt.Errorf("%w: level %d belongs to %s", ErrNotAuthorized, step.Level, step.ApproverID)
	}

	now := e.now()
	expectedVersion := instance.Version

	step.ActionAt = &now
	step.Comment = comment

	var (
		historyAction string
		finalized     bool
	)

	if decision == entity.DecisionReject {
		// Early exit: remaining levels stay untouched, not retroactively skipped.
		step.Status = entity.StepStatusRejected
		instance.Status = entity.InstanceStatusRejected
		instance.SLA.CompletedAt = &now
		historyAction = entity.HistoryActionRejected
		finalized = true
	} else {
		step.Status = entity.StepStatusApproved
		historyAction = entity.HistoryActionApproved
		if instance.CurrentLevel < instance.TotalLevels {
			instance.CurrentLevel++
			instance.Status = entity.InstanceStatusPending
			// The next step's SLA clock starts the moment it becomes current.
			chain.Rebase(instance.CurrentStep(), now)
		} else {
			instance.Status = entity.InstanceStatusApproved
			instance.SLA.CompletedAt = &now
			finalized = true
		}
	}
	instance.UpdatedAt = now

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.instances.Update(txCtx, instance, expectedVersion); err != nil {
			return err
		}
		return e.history.Append(txCtx, &entity.HistoryEntry{
			InstanceID: instance.ID,
			Action:     historyAction,
			Actor:      actorID,
			Level:      step.Level,
			Details:    comment,
			Timestamp:  now,
		})
	})
	if err != nil {
		if errors.Is(err, ErrStaleInstanceState) {
			return nil, fmt.Errorf("%w: instance %s", ErrStaleInstanceState, instanceID)
		}
		e.logger.Error("Failed to persist decision", "error", err, "instance_id", instanceID)
		return nil, err
	}

	e.metrics.DecisionProcessed(decision)
	e.afterDecision(ctx, instance, step, decision)

	if finalized {
		if err := e.deliverOutcome(ctx, instance); err != nil {
			return instance, err
		}
	}

	return instance, nil
}

// afterDecision handles the fire-and-forget side of a persisted decision:
// notifications and transition events.
func (e *Engine) afterDecision(ctx context.Context, instance *entity.ApprovalInstance, step *entity.ChainStep, decision string) {
	switch {
	case instance.Status == entity.InstanceStatusRejected:
		e.notify(ctx, instance.ID, instance.RequesterID, entity.NotificationKindRejected)
		e.emit(ctx, event.New(event.TypeInstanceRejected, instance.ID, map[string]interface{}{
			"level": step.Level,
			"actor": step.ApproverID,
		}))
	case instance.Status == entity.InstanceStatusApproved:
		e.notify(ctx, instance.ID, instance.RequesterID, entity.NotificationKindApproved)
		e.emit(ctx, event.New(event.TypeInstanceApproved, instance.ID, map[string]interface{}{
			"level": step.Level,
			"actor": step.ApproverID,
		}))
	default:
		next := instance.CurrentStep()
		e.notify(ctx, instance.ID, next.ApproverID, entity.NotificationKindPending)
		e.emit(ctx, event.New(event.TypeLevelAdvanced, instance.ID, map[string]interface{}{
			"level": instance.CurrentLevel,
		}))
	}

	e.logger.Info("Decision processed",
		"instance_id", instance.ID,
		"decision", decision,
		"level", step.Level,
		"status", instance.Status,
	)
}

// deliverOutcome hands the terminal result to the consuming business object.
// The instance mutation is already committed; a failing consumer is surfaced
// to the caller but never un-finalizes the instance.
func (e *Engine) deliverOutcome(ctx context.Context, instance *entity.ApprovalInstance) error {
	outcome := entity.OutcomeApproved
	if instance.Status == entity.InstanceStatusRejected {
		outcome = entity.OutcomeRejected
	}

	err := e.outcomes.HandleOutcome(ctx, port.Outcome{
		InstanceID:  instance.ID,
		RequestType: instance.RequestType,
		RequestID:   instance.RequestID,
		Outcome:     outcome,
	})
	if err != nil {
		e.logger.Error("Outcome delivery failed",
			"error", err,
			"instance_id", instance.ID,
			"request_type", instance.RequestType,
			"request_id", instance.RequestID,
		)
		return fmt.Errorf("deliver %s outcome for %s: %w", outcome, instance.ID, err)
	}
	return nil
}

// Cancel terminates an open instance by external administrative action.
func (e *Engine) Cancel(ctx context.Context, instanceID, actorID, reason string) (*entity.ApprovalInstance, error) {
	instance, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", instanceID, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	if instance.IsTerminal() {
		return nil, fmt.Errorf("%w: instance %s is %s", ErrNoPendingApprover, instanceID, instance.Status)
	}

	now := e.now()
	expectedVersion := instance.Version
	instance.Status = entity.InstanceStatusCancelled
	instance.SLA.CompletedAt = &now
	instance.UpdatedAt = now

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.instances.Update(txCtx, instance, expectedVersion); err != nil {
			return err
		}
		return e.history.Append(txCtx, &entity.HistoryEntry{
			InstanceID: instance.ID,
			Action:     entity.HistoryActionCancelled,
			Actor:      actorID,
			Level:      instance.CurrentLevel,
			Details:    reason,
			Timestamp:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.New(event.TypeInstanceCancelled, instance.ID, map[string]interface{}{
		"actor":  actorID,
		"reason": reason,
	}))
	e.logger.Info("Instance cancelled", "instance_id", instanceID, "actor", actorID)
	return instance, nil
}

// GetInstance returns an instance by ID.
func (e *Engine) GetInstance(ctx context.Context, instanceID string) (*entity.ApprovalInstance, error) {
	instance, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	return instance, nil
}

// GetCurrentApprover returns the chain step awaiting a decision, or nil when
// the instance is terminal.
func (e *Engine) GetCurrentApprover(ctx context.Context, instanceID string) (*entity.ChainStep, error) {
	instance, err := e.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.IsTerminal() {
		return nil, nil
	}
	return instance.CurrentStep(), nil
}

// ListOpen returns open (pending or escalated) instances, oldest first.
func (e *Engine) ListOpen(ctx context.Context, limit, offset int) ([]*entity.ApprovalInstance, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return e.instances.ListOpen(ctx, limit, offset)
}

// GetHistory returns the instance's decision trail in append order.
func (e *Engine) GetHistory(ctx context.Context, instanceID string) ([]*entity.HistoryEntry, error) {
	return e.history.ListByInstanceID(ctx, instanceID)
}

// notify emits a notification intent and records it in the append-only log.
// Failures are logged and swallowed; they never fail the owning operation.
func (e *Engine) notify(ctx context.Context, instanceID, recipientID, kind string) {
	record := &entity.NotificationRecord{
		InstanceID:  instanceID,
		RecipientID: recipientID,
		Kind:        kind,
		Channel:     e.channel,
		SentAt:      e.now(),
	}

	err := e.notifier.Notify(ctx, port.NotificationIntent{
		InstanceID:  instanceID,
		RecipientID: recipientID,
		Kind:        kind,
		Channel:     e.channel,
	})
	if err != nil {
		record.Error = err.Error()
		e.metrics.NotificationFailure()
		e.logger.Error("Notification dispatch failed",
			"error", err,
			"instance_id", instanceID,
			"recipient_id", recipientID,
			"kind", kind,
		)
	}

	if err := e.notifyLog.Append(ctx, record); err != nil {
		e.logger.Error("Failed to record notification", "error", err, "instance_id", instanceID)
	}
}

func (e *Engine) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher != nil {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}
