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

// OnboardingRepository implements port.OnboardingRepository.
type OnboardingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOnboardingRepository creates a new onboarding repository
func NewOnboardingRepository(db *sql.DB, logger *zap.Logger) port.OnboardingRepository {
	return &OnboardingRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new onboarding record.
func (r *OnboardingRepository) Create(ctx context.Context, record *entity.OnboardingRecord) error {
	query := `
		INSERT INTO onboarding_records (
			id, candidate_id, position, department, requester_id,
			status, can_re_request, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.CandidateID,
		record.Position,
		record.Department,
		record.RequesterID,
		record.Status,
		record.CanReRequest,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create onboarding record", zap.Error(err), zap.String("id", record.ID))
		return fmt.Errorf("failed to create onboarding record: %w", err)
	}
	return nil
}

// GetByID retrieves an onboarding record by ID.
func (r *OnboardingRepository) GetByID(ctx context.Context, id string) (*entity.OnboardingRecord, error) {
	query := `
		SELECT id, candidate_id, position, department, requester_id,
			status, can_re_request, created_at, updated_at
		FROM onboarding_records
		WHERE id = ?
	`

	var record entity.OnboardingRecord
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.CandidateID,
		&record.Position,
		&record.Department,
		&record.RequesterID,
		&record.Status,
		&record.CanReRequest,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get onboarding record", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get onboarding record: %w", err)
	}
	return &record, nil
}

// UpdateStatus moves the record to the given status.
func (r *OnboardingRepository) UpdateStatus(ctx context.Context, id, status string, canReRequest bool) error {
	query := `
		UPDATE onboarding_records
		SET status = ?, can_re_request = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, status, canReRequest, id)
	if err != nil {
		r.logger.Error("Failed to update onboarding status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update onboarding status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("onboarding record %s not found", id)
	}
	return nil
}

// AppendAudit records one audit entry.
func (r *OnboardingRepository) AppendAudit(ctx context.Context, audit *entity.OnboardingAudit) error {
	metadata := ""
	if len(audit.Metadata) > 0 {
		data, err := json.Marshal(audit.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = string(data)
	}

	query := `
		INSERT INTO onboarding_audit (
			onboarding_id, action, description, actor,
			previous_status, new_status, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		audit.OnboardingID,
		audit.Action,
		audit.Description,
		audit.Actor,
		audit.PreviousStatus,
		audit.NewStatus,
		metadata,
		audit.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append onboarding audit", zap.Error(err), zap.String("onboarding_id", audit.OnboardingID))
		return fmt.Errorf("failed to append onboarding audit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	audit.ID = id
	return nil
}

// ListAudit returns the record's audit trail in append order.
func (r *OnboardingRepository) ListAudit(ctx context.Context, onboardingID string) ([]*entity.OnboardingAudit, error) {
	query := `
		SELECT id, onboarding_id, action, description, actor,
			previous_status, new_status, metadata, timestamp
		FROM onboarding_audit
		WHERE onboarding_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, onboardingID)
	if err != nil {
		r.logger.Error("Failed to list onboarding audit", zap.Error(err), zap.String("onboarding_id", onboardingID))
		return nil, fmt.Errorf("failed to list onboarding audit: %w", err)
	}
	defer rows.Close()

	var audits []*entity.OnboardingAudit
	for rows.Next() {
		var (
			audit    entity.OnboardingAudit
			metadata sql.NullString
		)
		err := rows.Scan(
			&audit.ID,
			&audit.OnboardingID,
			&audit.Action,
			&audit.Description,
			&audit.Actor,
			&audit.PreviousStatus,
			&audit.NewStatus,
			&metadata,
			&audit.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan onboarding audit: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &audit.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		audits = append(audits, &audit)
	}
	return audits, rows.Err()
}

// Verify interface compliance
var _ port.OnboardingRepository = (*OnboardingRepository)(nil)
