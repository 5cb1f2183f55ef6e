package domain

import "time"

// RunStatus is the terminal outcome of a collection cycle. A run stays in
// RunRunning only between cycle start and finalization.
type RunStatus string

const (
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunPartiallyFailed RunStatus = "partially_failed"
	RunFailed          RunStatus = "failed"
)

// CollectionRun records one scheduling slot's outcome. It is created when the
// cycle starts and finalized exactly once; CompletedAt set means the record
// is immutable.
type CollectionRun struct {
	ScheduledFor   time.Time  `json:"scheduled_for"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Status         RunStatus  `json:"status"`
	Fetched        int        `json:"fetched"`
	NewCount       int        `json:"new_count"`
	DuplicateCount int        `json:"duplicate_count"`
	RejectedCount  int        `json:"rejected_count"`
	FailedChannels []string   `json:"failed_channels"`
}

// Succeeded reports whether the run finished without a storage fault.
// Channel-level retry exhaustion still counts as a successful slot for
// catch-up purposes.
func (r *CollectionRun) Succeeded() bool {
	return r.Status == RunCompleted || r.Status == RunPartiallyFailed
}

// Finalize sets the terminal status and completion time.
func (r *CollectionRun) Finalize(status RunStatus, at time.Time) {
	r.Status = status
	t := at.UTC()
	r.CompletedAt = &t
}
