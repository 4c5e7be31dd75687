package db

import (
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Worker{},
		&domain.Task{},
		&domain.EvolutionCycle{},
		&domain.EvolutionProposal{},
		&domain.MetricSample{},
		&domain.AuditEvent{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Dequeue order: highest tier first, then oldest.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_dequeue
		ON tasks (priority_rank DESC, created_at ASC)
		WHERE status = 'QUEUED'
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_events_resource
		ON audit_events (resource_type, resource_id)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_workers_selection
		ON workers (efficiency ASC, id ASC)
		WHERE status <> 'OFFLINE'
	`).Error; err != nil {
		return err
	}

	return nil
}
