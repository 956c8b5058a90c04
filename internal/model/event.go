package model

import "time"

// TaskEvent is the payload produced to every task.* topic. Field names match
// the wire contract the executors consume.
type TaskEvent struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Initiator  string   `json:"initiator,omitempty"`
	Recipient  string   `json:"recipient,omitempty"`
	TaskIDs    []string `json:"taskIds"`
	CreateTime int64    `json:"createDateTime"`
	UpdateTime int64    `json:"updateDateTime"`
}

// NewTaskEvent builds a single-task event stamped with the given instant.
func NewTaskEvent(id, title, taskID string, now time.Time) *TaskEvent {
	ms := now.UnixMilli()
	return &TaskEvent{
		ID:         id,
		Title:      title,
		TaskIDs:    []string{taskID},
		CreateTime: ms,
		UpdateTime: ms,
	}
}
