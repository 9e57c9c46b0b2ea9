package domain

import (
	"time"
)

// Dataset locates one dataset held by a node. Duplicates of the same
// (node, disease, path) triple are allowed.
type Dataset struct {
	ID      int64  `json:"id" yaml:"-"`
	Node    string `json:"node" yaml:"node"`
	Path    string `json:"path" yaml:"path"`
	Disease string `json:"disease" yaml:"disease"`
}

type DatasetManifest struct {
	Datasets []Dataset `yaml:"datasets"`
}

type Task struct {
	ID        string     `json:"task_id" yaml:"task_id"`
	Username  string     `json:"username" yaml:"username"`
	Model     string     `json:"model" yaml:"model"`
	NSample   int64      `json:"n_sample" yaml:"n_sample"`
	Disease   string     `json:"disease" yaml:"disease"`
	Condition string     `json:"condition" yaml:"condition"`
	Status    TaskStatus `json:"status" yaml:"status"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusSuccess   TaskStatus = "success"
	TaskStatusFailed    TaskStatus = "failed"
)

func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusRunning,
		TaskStatusCancelled,
		TaskStatusSuccess,
		TaskStatusFailed,
	}
}

func (s TaskStatus) String() string { return string(s) }

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCancelled, TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is expected.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCancelled || s == TaskStatusSuccess || s == TaskStatusFailed
}

// CanTransitionTo applies the pending -> running -> {success, failed,
// cancelled} ordering. Re-asserting the current status is allowed, and
// a pending task may be cancelled before it starts.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case TaskStatusPending:
		return next == TaskStatusRunning || next == TaskStatusCancelled
	case TaskStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

type TaskRequest struct {
	Username  string `json:"username"`
	Model     string `json:"model"`
	NSample   int64  `json:"n_sample"`
	Disease   string `json:"disease"`
	Condition string `json:"condition"`
}

type TaskFilter struct {
	Status       TaskStatus
	CreatedAfter *time.Time
	Limit        int
}

const DefaultTaskListLimit = 50
