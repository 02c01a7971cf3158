package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/port"
	"github.com/talentoak/approval-engine/internal/domain/entity"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/sqlite"
)

// LeaveRepository implements port.LeaveRepository.
type LeaveRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeaveRepository creates a new leave request repository
func NewLeaveRepository(db *sql.DB, logger *zap.Logger) port.LeaveRepository {
	return &LeaveRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a leave request by ID.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*entity.LeaveRequest, error) {
	query := `
		SELECT id, employee_id, leave_type, days, status, created_at, updated_at
		FROM leave_requests
		WHERE id = ?
	`

	var request entity.LeaveRequest
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&request.ID,
		&request.EmployeeID,
		&request.LeaveType,
		&request.Days,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return &request, nil
}

// UpdateStatus moves the leave request to the given status.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE leave_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update leave status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update leave status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("leave request %s not found", id)
	}
	return nil
}

// Verify interface compliance
var _ port.LeaveRepository = (*LeaveRepository)(nil)
