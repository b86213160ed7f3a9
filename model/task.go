package model

import "time"

type TaskKind string

const (
	TaskKindBatch TaskKind = "BATCH"
	TaskKindSmart TaskKind = "SMART"
)

type TaskStatus string

const (
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// Task tracks the counters of a batch or smart withdrawal job.
type Task struct {
	TaskID    string     `json:"task_id"`
	Kind      TaskKind   `json:"type"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Failed    int        `json:"failed"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Attempted is the number of items that reached a terminal state.
func (t Task) Attempted() int {
	return t.Completed + t.Failed
}

func (t Task) Finished() bool {
	return t.Status != TaskProcessing
}
