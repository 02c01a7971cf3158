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

// UserRepository implements port.UserRepository over the directory table.
// The find operations use created_at ASC so resolution is deterministic when
// several users hold the same role.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id, email, name, role, department, manager_id, manages_payroll, active, created_at
`

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.queryOne(ctx, query, id)
}

// FirstActiveByRole returns the earliest-created active user with the role.
func (r *UserRepository) FirstActiveByRole(ctx context.Context, role string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = ? AND active = 1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, role)
}

// FirstActivePayrollManager returns the earliest-created active user with the
// payroll-management capability.
func (r *UserRepository) FirstActivePayrollManager(ctx context.Context) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE manages_payroll = 1 AND active = 1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query)
}

// DepartmentHead returns the earliest-created active manager in the department.
func (r *UserRepository) DepartmentHead(ctx context.Context, department string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = ? AND department = ? AND active = 1
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, entity.RoleManager, department)
}

func (r *UserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	var (
		user      entity.User
		managerID sql.NullString
	)

	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Department,
		&managerID,
		&user.ManagesPayroll,
		&user.Active,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to query user", zap.Error(err))
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if managerID.Valid {
		user.ManagerID = managerID.String
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
