package domain

import "time"

// TaskResult is the per-task outcome of a queue dispatch.
type TaskResult struct {
	TaskID     string       `json:"task_id"`
	Title      string       `json:"title"`
	Priority   TaskPriority `json:"priority"`
	Status     TaskStatus   `json:"status"`
	Skipped    bool         `json:"skipped,omitempty"`
	WorkerID   string       `json:"worker_id,omitempty"`
	WorkerName string       `json:"worker_name,omitempty"`
	RouteTier  string       `json:"route_tier,omitempty"`
	Result     string       `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	// PersistError is set when the final status write failed; it is not retried.
	PersistError string `json:"persist_error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// BatchResult aggregates one queue dispatch invocation.
type BatchResult struct {
	Fetched    int          `json:"fetched"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Results    []TaskResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
}
