package memory

import (
	"context"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
)

// AuditRepository keeps events in memory and mirrors each one to the log.
type AuditRepository struct {
	store  *Store
	logger *logger.Logger
}

func NewAuditRepository(store *Store, log *logger.Logger) *AuditRepository {
	return &AuditRepository{store: store, logger: log}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Create(_ context.Context, event *domain.AuditEvent) error {
	r.store.mu.Lock()
	event.ID = uint(r.store.nextSeq())
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.store.audit = append(r.store.audit, *event)
	r.store.mu.Unlock()

	if r.logger != nil {
		r.logger.Infow("audit event",
			"type", event.Type,
			"status", event.Status,
			"message", event.Message,
			"resource_type", event.ResourceType,
			"resource_id", event.ResourceID,
		)
	}
	return nil
}

func (r *AuditRepository) GetByResource(_ context.Context, resourceType, resourceID string) ([]domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.AuditEvent
	for i := len(r.store.audit) - 1; i >= 0 && len(out) < 50; i-- {
		e := r.store.audit[i]
		if e.ResourceType == resourceType && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *AuditRepository) GetAll(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.AuditEvent
	for i := len(r.store.audit) - 1; i >= 0; i-- {
		out = append(out, r.store.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *AuditRepository) CleanupOld(_ context.Context, olderThan time.Duration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	kept := r.store.audit[:0]
	for _, e := range r.store.audit {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.store.audit = kept
	return nil
}
