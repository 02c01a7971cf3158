package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/sqlite"
)

// DefinitionRepository implements port.DefinitionRepository. Steps and
// conditions are stored as JSON columns; definitions change rarely and are
// always read whole.
type DefinitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDefinitionRepository creates a new workflow definition repository
func NewDefinitionRepository(db *sql.DB, logger *zap.Logger) port.DefinitionRepository {
	return &DefinitionRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveByRequestType returns active definitions ordered by descending
// priority, then most recently updated. The selector relies on this order.
func (r *DefinitionRepository) ListActiveByRequestType(ctx context.Context, requestType string) ([]*entity.WorkflowDefinition, error) {
	query := `
		SELECT id, name, request_type, requester_role, steps, conditions,
			priority, active, created_at, updated_at
		FROM workflow_definitions
		WHERE request_type = ? AND active = 1
		ORDER BY priority DESC, updated_at DESC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, requestType)
	if err != nil {
		r.logger.Error("Failed to list definitions", zap.String("request_type", requestType), zap.Error(err))
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer rows.Close()

	var definitions []*entity.WorkflowDefinition
	for rows.Next() {
		var (
			def        entity.WorkflowDefinition
			steps      string
			conditions sql.NullString
		)
		err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.RequestType,
			&def.RequesterRole,
			&steps,
			&conditions,
			&def.Priority,
			&def.Active,
			&def.CreatedAt,
			&def.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}

		if err := json.Unmarshal([]byte(steps), &def.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps for definition %s: %w", def.ID, err)
		}
		if conditions.Valid && conditions.String != "" {
			if err := json.Unmarshal([]byte(conditions.String), &def.Conditions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conditions for definition %s: %w", def.ID, err)
			}
		}

		definitions = append(definitions, &def)
	}
	return definitions, rows.Err()
}

// Verify interface compliance
var _ port.DefinitionRepository = (*DefinitionRepository)(nil)
