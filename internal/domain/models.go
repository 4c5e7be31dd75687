package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

// ==================== ENUMS ====================

type WorkerStatus string

const (
	WorkerStatusActive     WorkerStatus = "ACTIVE"
	WorkerStatusProcessing WorkerStatus = "PROCESSING"
	WorkerStatusWarning    WorkerStatus = "WARNING"
	WorkerStatusIdle       WorkerStatus = "IDLE"
	WorkerStatusOffline    WorkerStatus = "OFFLINE"
)

func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusActive, WorkerStatusProcessing, WorkerStatusWarning, WorkerStatusIdle, WorkerStatusOffline:
		return true
	}
	return false
}

type WorkerRole string

const (
	RoleOrchestrator WorkerRole = "orchestrator"
	RoleAnalyst      WorkerRole = "analyst"
	RoleEngineer     WorkerRole = "engineer"
	RoleSecurity     WorkerRole = "security"
	RoleCreative     WorkerRole = "creative"
	RoleSupport      WorkerRole = "support"
	RoleData         WorkerRole = "data"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityNormal TaskPriority = "NORMAL"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// Rank orders priority tiers; higher is dequeued first.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	}
	return -1
}

func (p TaskPriority) Valid() bool { return p.Rank() >= 0 }

func ParsePriority(s string) (TaskPriority, bool) {
	if s == "" {
		return PriorityNormal, true
	}
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "QUEUED"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// CanTransitionTo reports whether the status machine allows s → next.
// The only valid edges are QUEUED→PROCESSING and PROCESSING→{COMPLETED,FAILED}.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusQueued:
		return next == TaskStatusProcessing
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	}
	return false
}

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

type Cadence string

const (
	CadenceMicro     Cadence = "MICRO"
	CadenceTactical  Cadence = "TACTICAL"
	CadenceStrategic Cadence = "STRATEGIC"
)

func ParseCadence(s string) (Cadence, bool) {
	c := Cadence(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CadenceMicro, CadenceTactical, CadenceStrategic:
		return c, true
	}
	return "", false
}

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "PENDING"
	ProposalStatusApproved ProposalStatus = "APPROVED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
	ProposalStatusMerged   ProposalStatus = "MERGED"
)

func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusRejected || s == ProposalStatusMerged
}

type ProposalSource string

const (
	ProposalSourceReasoning ProposalSource = "reasoning"
	ProposalSourceHeuristic ProposalSource = "heuristic"
)

type EventStatus string

const (
	EventStatusPending EventStatus = "pending"
	EventStatusSuccess EventStatus = "success"
	EventStatusFailed  EventStatus = "failed"
)

type MetricKind string

const (
	MetricKindWorkerHeartbeat MetricKind = "worker_heartbeat"
	MetricKindFleetHealth     MetricKind = "fleet_health"
)

// ==================== JSONB TYPES ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

// StringSet is a sorted, de-duplicated list of strings stored as a JSON array.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	var s StringSet
	return s.With(values...)
}

func (s StringSet) Contains(v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// With returns a new set containing s plus values.
func (s StringSet) With(values ...string) StringSet {
	seen := make(map[string]struct{}, len(s)+len(values))
	out := make(StringSet, 0, len(s)+len(values))
	for _, v := range append(append([]string{}, s...), values...) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Without returns a new set with values removed.
func (s StringSet) Without(values ...string) StringSet {
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	out := make(StringSet, 0, len(s))
	for _, v := range s {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	var out []string
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, errors.New("failed to scan JSONB: invalid type")
}

// ==================== ENTITIES ====================

const (
	MinEfficiency = 0.0
	MaxEfficiency = 100.0
)

// ClampEfficiency bounds v to [MinEfficiency, MaxEfficiency].
func ClampEfficiency(v float64) float64 {
	if math.IsNaN(v) {
		return MinEfficiency
	}
	return math.Max(MinEfficiency, math.Min(MaxEfficiency, v))
}

type Worker struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string       `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Role           WorkerRole   `gorm:"size:50;not null;index" json:"role"`
	CapabilityTags StringSet    `gorm:"type:jsonb" json:"capability_tags"`
	Efficiency     float64      `gorm:"not null;default:75;index" json:"efficiency"`
	Load           float64      `gorm:"not null;default:0" json:"load"`
	Status         WorkerStatus `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	CurrentTaskID  *string      `gorm:"size:36" json:"current_task_id,omitempty"`
	LastActiveAt   *time.Time   `json:"last_active_at,omitempty"`
	BehaviorText   string       `gorm:"type:text" json:"behavior_text"`
	EvolutionCount int          `gorm:"not null;default:0" json:"evolution_count"`

	// Version increments on every successful write; updates are conditional on it.
	Version int64 `gorm:"not null;default:0" json:"version"`
}

func (w *Worker) SetEfficiency(v float64) {
	w.Efficiency = ClampEfficiency(v)
}

type Task struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title            string       `gorm:"size:255;not null" json:"title"`
	Description      string       `gorm:"type:text" json:"description"`
	Priority         TaskPriority `gorm:"size:10;not null;default:'NORMAL'" json:"priority"`
	PriorityRank     int          `gorm:"not null;default:1;index" json:"-"`
	Status           TaskStatus   `gorm:"size:20;not null;default:'QUEUED';index" json:"status"`
	AssignedWorkerID *string      `gorm:"size:36;index" json:"assigned_worker_id,omitempty"`
	Result           string       `gorm:"type:text" json:"result,omitempty"`
	ErrorMessage     string       `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	DurationMs       int64        `gorm:"default:0" json:"duration_ms"`
}

type EvolutionCycle struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Cadence          Cadence `gorm:"size:20;not null;index" json:"cadence"`
	CandidateCount   int     `gorm:"not null;default:0" json:"candidate_count"`
	WorkersEvolved   int     `gorm:"not null;default:0" json:"workers_evolved"`
	FallbackCount    int     `gorm:"not null;default:0" json:"fallback_count"`
	EfficiencyBefore float64 `json:"efficiency_before"`
	EfficiencyAfter  float64 `json:"efficiency_after"`
	DurationMs       int64   `json:"duration_ms"`
	Details          JSONB   `gorm:"type:jsonb" json:"details"`
}

// ProposalAnalysis is the structured reasoning attached to a proposal.
type ProposalAnalysis struct {
	Weaknesses          []string `json:"weaknesses"`
	Improvements        []string `json:"improvements"`
	Confidence          float64  `json:"confidence"`
	ExpectedGain        float64  `json:"expected_gain"`
	CapabilitiesAdded   []string `json:"capabilities_added,omitempty"`
	CapabilitiesRemoved []string `json:"capabilities_removed,omitempty"`
	Rationale           string   `json:"rationale,omitempty"`
}

func (a ProposalAnalysis) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *ProposalAnalysis) Scan(value interface{}) error {
	if value == nil {
		*a = ProposalAnalysis{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, a)
}

type EvolutionProposal struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkerID         string           `gorm:"size:36;not null;index" json:"worker_id"`
	CurrentBehavior  string           `gorm:"type:text" json:"current_behavior"`
	ProposedBehavior string           `gorm:"type:text;not null" json:"proposed_behavior"`
	Analysis         ProposalAnalysis `gorm:"type:jsonb" json:"analysis"`
	Source           ProposalSource   `gorm:"size:20;not null" json:"source"`
	Status           ProposalStatus   `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	ReviewNote       string           `gorm:"type:text" json:"review_note,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`
	MergedAt         *time.Time       `json:"merged_at,omitempty"`
}

type MetricSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Kind         MetricKind   `gorm:"size:30;not null;index" json:"kind"`
	WorkerID     *string      `gorm:"size:36;index" json:"worker_id,omitempty"`
	Efficiency   float64      `json:"efficiency"`
	Delta        float64      `json:"delta"`
	StatusBefore WorkerStatus `gorm:"size:20" json:"status_before,omitempty"`
	StatusAfter  WorkerStatus `gorm:"size:20" json:"status_after,omitempty"`
	HealthScore  float64      `json:"health_score"`
	Meta         JSONB        `gorm:"type:jsonb" json:"meta,omitempty"`
}

type AuditEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Type         string      `gorm:"size:100;not null;index" json:"type"`
	Status       EventStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Message      string      `gorm:"type:text" json:"message"`
	Meta         JSONB       `gorm:"type:jsonb" json:"meta"`
	ResourceID   string      `gorm:"size:36;index" json:"resource_id,omitempty"`
	ResourceType string      `gorm:"size:100;index" json:"resource_type"`
}
