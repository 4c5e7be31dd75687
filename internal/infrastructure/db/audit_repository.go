package db

import (
	"context"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type auditRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepository(db *gorm.DB, log *logger.Logger) ports.AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, event *domain.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.log.Errorw("audit_repo_create_failed", "type", event.Type, "status", event.Status, "error", err)
		return err
	}
	r.log.Infow("audit_repo_create_ok", "id", event.ID, "type", event.Type, "status", event.Status)
	return nil
}

func (r *auditRepository) GetAll(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := r.db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		r.log.Errorw("audit_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Infow("audit_repo_list_ok", "count", len(events))
	return events, nil
}

func (r *auditRepository) GetByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at desc, id desc").
		Limit(50).
		Find(&events).Error
	if err != nil {
		r.log.Errorw("audit_repo_get_by_resource_failed", "resource_type", resourceType, "resource_id", resourceID, "error", err)
		return nil, err
	}
	r.log.Infow("audit_repo_get_by_resource_ok", "resource_type", resourceType, "resource_id", resourceID, "count", len(events))
	return events, nil
}

// CleanupOld removes events older than the specified duration
func (r *auditRepository) CleanupOld(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.AuditEvent{}).Error; err != nil {
		r.log.Errorw("audit_repo_cleanup_failed", "error", err)
		return err
	}
	r.log.Infow("audit_repo_cleanup_ok")
	return nil
}
