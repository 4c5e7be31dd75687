// Package memory holds map-backed repositories for local runs and tests.
// They honor the same conditional-write contracts as the gorm repositories.
package memory

import (
	"sync"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
)

// Store is the shared backing state. Every repository built from one Store
// sees the same data.
type Store struct {
	mu            sync.RWMutex
	workers       map[string]domain.Worker
	tasks         map[string]domain.Task
	taskSeq       map[string]uint64
	seq           uint64
	cycles        []domain.EvolutionCycle
	proposals     map[string]domain.EvolutionProposal
	proposalOrder []string
	metrics       []domain.MetricSample
	audit         []domain.AuditEvent
}

func NewStore() *Store {
	return &Store{
		workers:   make(map[string]domain.Worker),
		tasks:     make(map[string]domain.Task),
		taskSeq:   make(map[string]uint64),
		proposals: make(map[string]domain.EvolutionProposal),
	}
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func cloneWorker(w domain.Worker) domain.Worker {
	w.CapabilityTags = append(domain.StringSet(nil), w.CapabilityTags...)
	if w.CurrentTaskID != nil {
		id := *w.CurrentTaskID
		w.CurrentTaskID = &id
	}
	if w.LastActiveAt != nil {
		t := *w.LastActiveAt
		w.LastActiveAt = &t
	}
	return w
}

func cloneTask(t domain.Task) domain.Task {
	if t.AssignedWorkerID != nil {
		id := *t.AssignedWorkerID
		t.AssignedWorkerID = &id
	}
	return t
}
