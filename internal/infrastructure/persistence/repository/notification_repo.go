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

// NotificationLogRepository implements port.NotificationLogRepository. Each
// dispatched (or failed) notification intent leaves exactly one row.
type NotificationLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *sql.DB, logger *zap.Logger) port.NotificationLogRepository {
	return &NotificationLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one notification attempt.
func (r *NotificationLogRepository) Append(ctx context.Context, record *entity.NotificationRecord) error {
	query := `
		INSERT INTO notification_log (instance_id, recipient_id, kind, channel, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		record.InstanceID,
		record.RecipientID,
		record.Kind,
		record.Channel,
		record.Error,
		record.SentAt,
	)
	if err != nil {
		r.logger.Error("Failed to append notification record", zap.Error(err), zap.String("instance_id", record.InstanceID))
		return fmt.Errorf("failed to append notification record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// ListByInstanceID returns the instance's notification log in append order.
func (r *NotificationLogRepository) ListByInstanceID(ctx context.Context, instanceID string) ([]*entity.NotificationRecord, error) {
	query := `
		SELECT id, instance_id, recipient_id, kind, channel, error, sent_at
		FROM notification_log
		WHERE instance_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, instanceID)
	if err != nil {
		r.logger.Error("Failed to list notification records", zap.Error(err), zap.String("instance_id", instanceID))
		return nil, fmt.Errorf("failed to list notification records: %w", err)
	}
	defer rows.Close()

	var records []*entity.NotificationRecord
	for rows.Next() {
		var record entity.NotificationRecord
		err := rows.Scan(
			&record.ID,
			&record.InstanceID,
			&record.RecipientID,
			&record.Kind,
			&record.Channel,
			&record.Error,
			&record.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.NotificationLogRepository = (*NotificationLogRepository)(nil)
