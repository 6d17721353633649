package searchindex

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// TaskTypeRebuild asks the search service to rebuild the index of one object type.
const TaskTypeRebuild = "rebuild"

// Task is one search index task.
type Task struct {
	ID         string
	TaskType   string
	ObjectType string
	Status     Status
	CreatedAt  time.Time
	RunID      *string
}
