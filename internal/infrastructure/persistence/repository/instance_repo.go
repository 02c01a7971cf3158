package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/sqlite"
)

// InstanceRepository implements port.InstanceRepository. The instance row and
// its chain step rows are always written together; Update is conditional on
// the version column and bumps it.
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

const instanceColumns = `
	id, request_type, request_id, requester_id, workflow_id, status,
	current_level, total_levels, attributes,
	started_at, expected_completion_at, completed_at, is_breached, breach_reason,
	version, created_at, updated_at
`

// Create persists a new instance and its chain steps.
func (r *InstanceRepository) Create(ctx context.Context, instance *entity.ApprovalInstance) error {
	attributes, err := marshalAttributes(instance.Attributes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ex := sqlite.Executor(ctx, r.db)
	_, err = ex.ExecContext(ctx, query,
		instance.ID,
		instance.RequestType,
		instance.RequestID,
		instance.RequesterID,
		instance.WorkflowID,
		instance.Status,
		instance.CurrentLevel,
		instance.TotalLevels,
		attributes,
		instance.SLA.StartedAt,
		instance.SLA.ExpectedCompletionAt,
		nullTime(instance.SLA.CompletedAt),
		instance.SLA.IsBreached,
		instance.SLA.BreachReason,
		instance.Version,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.Error(err), zap.String("id", instance.ID))
		return fmt.Errorf("failed to create instance: %w", err)
	}

	for _, step := range instance.Chain {
		if err := r.insertStep(ctx, ex, instance.ID, step); err != nil {
			return err
		}
	}
	return nil
}

func (r *InstanceRepository) insertStep(ctx context.Context, ex sqlite.Execer, instanceID string, step *entity.ChainStep) error {
	query := `
		INSERT INTO approval_chain_steps (
			instance_id, level, role, approver_id, status, action_at, comment,
			sla_hours, escalation_hours, due_at, escalate_at, is_escalated, escalated_to
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ex.ExecContext(ctx, query,
		instanceID,
		step.Level,
		step.Role,
		step.ApproverID,
		step.Status,
		nullTime(step.ActionAt),
		step.Comment,
		step.SLA.SLAHours,
		step.SLA.EscalationHours,
		step.SLA.DueAt,
		step.SLA.EscalateAt,
		step.SLA.IsEscalated,
		step.SLA.EscalatedTo,
	)
	if err != nil {
		r.logger.Error("Failed to insert chain step", zap.Error(err),
			zap.String("instance_id", instanceID), zap.Int("level", step.Level))
		return fmt.Errorf("failed to insert chain step: %w", err)
	}
	return nil
}

// GetByID retrieves an instance and its chain by ID.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM approval_instances WHERE id = ?`

	row := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id)
	instance, err := r.scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	if err := r.loadChain(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// GetOpenByRequest retrieves the open instance for a request, if any.
func (r *InstanceRepository) GetOpenByRequest(ctx context.Context, requestType, requestID string) (*entity.ApprovalInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM approval_instances
		WHERE request_type = ? AND request_id = ? AND status IN (?, ?)
	`

	row := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query,
		requestType, requestID, entity.InstanceStatusPending, entity.InstanceStatusEscalated)
	instance, err := r.scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get open instance", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get open instance: %w", err)
	}

	if err := r.loadChain(ctx, instance); err != nil {
		return nil, err
	}
	return instance, nil
}

// ListOpen retrieves open instances with pagination, oldest first so the
// escalation sweep sees the longest-waiting work first.
func (r *InstanceRepository) ListOpen(ctx context.Context, limit, offset int) ([]*entity.ApprovalInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM approval_instances
		WHERE status IN (?, ?)
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query,
		entity.InstanceStatusPending, entity.InstanceStatusEscalated, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list open instances", zap.Error(err))
		return nil, fmt.Errorf("failed to list open instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.ApprovalInstance
	for rows.Next() {
		instance, err := r.scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, instance := range instances {
		if err := r.loadChain(ctx, instance); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

// Update persists the instance's mutable state conditional on expectedVersion
// and bumps the version. The chain step rows are rewritten by level.
func (r *InstanceRepository) Update(ctx context.Context, instance *entity.ApprovalInstance, expectedVersion int64) error {
	query := `
		UPDATE approval_instances
		SET status = ?, current_level = ?, completed_at = ?,
			is_breached = ?, breach_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	ex := sqlite.Executor(ctx, r.db)
	result, err := ex.ExecContext(ctx, query,
		instance.Status,
		instance.CurrentLevel,
		nullTime(instance.SLA.CompletedAt),
		instance.SLA.IsBreached,
		instance.SLA.BreachReason,
		instance.UpdatedAt,
		instance.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update instance", zap.String("id", instance.ID), zap.Error(err))
		return fmt.Errorf("failed to update instance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("instance %s at version %d: %w", instance.ID, expectedVersion, port.ErrStaleVersion)
	}
	instance.Version = expectedVersion + 1

	stepQuery := `
		UPDATE approval_chain_steps
		SET status = ?, action_at = ?, comment = ?,
			due_at = ?, escalate_at = ?, is_escalated = ?, escalated_to = ?
		WHERE instance_id = ? AND level = ?
	`
	for _, step := range instance.Chain {
		_, err := ex.ExecContext(ctx, stepQuery,
			step.Status,
			nullTime(step.ActionAt),
			step.Comment,
			step.SLA.DueAt,
			step.SLA.EscalateAt,
			step.SLA.IsEscalated,
			step.SLA.EscalatedTo,
			instance.ID,
			step.Level,
		)
		if err != nil {
			r.logger.Error("Failed to update chain step", zap.Error(err),
				zap.String("instance_id", instance.ID), zap.Int("level", step.Level))
			return fmt.Errorf("failed to update chain step: %w", err)
		}
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *InstanceRepository) scanInstance(s scanner) (*entity.ApprovalInstance, error) {
	var (
		instance    entity.ApprovalInstance
		attributes  sql.NullString
		completedAt sql.NullTime
	)

	err := s.Scan(
		&instance.ID,
		&instance.RequestType,
		&instance.RequestID,
		&instance.RequesterID,
		&instance.WorkflowID,
		&instance.Status,
		&instance.CurrentLevel,
		&instance.TotalLevels,
		&attributes,
		&instance.SLA.StartedAt,
		&instance.SLA.ExpectedCompletionAt,
		&completedAt,
		&instance.SLA.IsBreached,
		&instance.SLA.BreachReason,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		instance.SLA.CompletedAt = &completedAt.Time
	}
	if attributes.Valid && attributes.String != "" {
		if err := json.Unmarshal([]byte(attributes.String), &instance.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return &instance, nil
}

func (r *InstanceRepository) loadChain(ctx context.Context, instance *entity.ApprovalInstance) error {
	query := `
		SELECT level, role, approver_id, status, action_at, comment,
			sla_hours, escalation_hours, due_at, escalate_at, is_escalated, escalated_to
		FROM approval_chain_steps
		WHERE instance_id = ?
		ORDER BY level ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, instance.ID)
	if err != nil {
		r.logger.Error("Failed to load chain", zap.String("instance_id", instance.ID), zap.Error(err))
		return fmt.Errorf("failed to load chain: %w", err)
	}
	defer rows.Close()

	var chain []*entity.ChainStep
	for rows.Next() {
		var (
			step     entity.ChainStep
			actionAt sql.NullTime
		)
		err := rows.Scan(
			&step.Level,
			&step.Role,
			&step.ApproverID,
			&step.Status,
			&actionAt,
			&step.Comment,
			&step.SLA.SLAHours,
			&step.SLA.EscalationHours,
			&step.SLA.DueAt,
			&step.SLA.EscalateAt,
			&step.SLA.IsEscalated,
			&step.SLA.EscalatedTo,
		)
		if err != nil {
			return fmt.Errorf("failed to scan chain step: %w", err)
		}
		if actionAt.Valid {
			step.ActionAt = &actionAt.Time
		}
		chain = append(chain, &step)
	}

	instance.Chain = chain
	return rows.Err()
}

func marshalAttributes(attributes map[string]interface{}) (string, error) {
	if len(attributes) == 0 {
		return "", nil
	}
	data, err := json.Marshal(attributes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return string(data), nil
}

// nullTime maps an optional timestamp to its nullable column value.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
