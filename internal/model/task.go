package model

import (
	"fmt"
	"time"
)

// TaskMode selects how a task reaches an executor. Only Passive tasks go
// through the dispatcher; Active tasks are loaded from a local bundle on the
// executor and PassiveProcess tasks run outside the orchestrator entirely.
type TaskMode string

const (
	ModeActive         TaskMode = "Active"
	ModePassive        TaskMode = "Passive"
	ModePassiveProcess TaskMode = "PassiveProcess"
)

func (m TaskMode) Valid() bool {
	switch m {
	case ModeActive, ModePassive, ModePassiveProcess:
		return true
	}
	return false
}

// TaskLifecycleStatus is the authoritative task state, persisted in the store.
type TaskLifecycleStatus string

const (
	StatusCreated   TaskLifecycleStatus = "Created"
	StatusAssigning TaskLifecycleStatus = "Assigning"
	StatusRunning   TaskLifecycleStatus = "Running"
	StatusPaused    TaskLifecycleStatus = "Paused"
	StatusFinished  TaskLifecycleStatus = "Finished"
	StatusFailed    TaskLifecycleStatus = "Failed"
	StatusCancelled TaskLifecycleStatus = "Cancelled"
)

func ParseLifecycleStatus(s string) (TaskLifecycleStatus, error) {
	st := TaskLifecycleStatus(s)
	switch st {
	case StatusCreated, StatusAssigning, StatusRunning, StatusPaused,
		StatusFinished, StatusFailed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown lifecycle status %q", s)
}

// Terminal reports whether the status admits no further transitions.
func (s TaskLifecycleStatus) Terminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions encodes the lifecycle state machine. The status endpoint
// checks requested moves against it; the store's CAS update does not consult
// it and matches only the caller's from set.
var allowedTransitions = map[TaskLifecycleStatus][]TaskLifecycleStatus{
	StatusCreated:   {StatusAssigning, StatusCancelled},
	StatusAssigning: {StatusRunning, StatusFailed, StatusCancelled, StatusCreated},
	StatusRunning:   {StatusFinished, StatusFailed, StatusCancelled},
	StatusPaused:    {StatusCreated, StatusAssigning, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to TaskLifecycleStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Heartbeat sentinel values written by task workers.
const (
	HeartbeatFinished  = 200
	HeartbeatException = -1
	HeartbeatCancelled = -2
)

// Task is the persisted unit of work.
type Task struct {
	ID           string              `json:"id" bson:"id"`
	ClassName    string              `json:"className" bson:"className"`
	Source       string              `json:"source" bson:"source"`
	Name         string              `json:"name,omitempty" bson:"name,omitempty"`
	Description  string              `json:"description,omitempty" bson:"description,omitempty"`
	Executor     string              `json:"executor,omitempty" bson:"executor,omitempty"`
	Dependencies []string            `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Mode         TaskMode            `json:"mode" bson:"mode"`
	Status       TaskLifecycleStatus `json:"lifecycleStatus" bson:"lifecycleStatus"`
	Priority     int                 `json:"priority" bson:"priority"`
	Attachments  map[string]interface{} `json:"attachments,omitempty" bson:"attachments,omitempty"`
	CreateTime   int64               `json:"createDateTime" bson:"createDateTime"`
	UpdateTime   int64               `json:"updateDateTime" bson:"updateDateTime"`
	DeadlineTime int64               `json:"deadlineDateTime" bson:"deadlineDateTime"`
	IsPersistent bool                `json:"isPersistent,omitempty" bson:"isPersistent,omitempty"`
}

// NewTask fills defaults the submitter may omit: Passive mode, Created state,
// timestamps now and a deadline one week out.
func NewTask(id, className, source string, now time.Time) *Task {
	ms := now.UnixMilli()
	return &Task{
		ID:           id,
		ClassName:    className,
		Source:       source,
		Mode:         ModePassive,
		Status:       StatusCreated,
		CreateTime:   ms,
		UpdateTime:   ms,
		DeadlineTime: now.Add(7 * 24 * time.Hour).UnixMilli(),
	}
}

// Dispatchable reports whether the dispatcher may pick this task up.
func (t *Task) Dispatchable() bool {
	return t.Mode == ModePassive && (t.Status == StatusCreated || t.Status == StatusPaused)
}

// TaskFilter narrows list queries. Zero values mean "any".
type TaskFilter struct {
	ID        string
	ClassName string
	Executor  string
	Statuses  []TaskLifecycleStatus
}

// MonitoredTaskRecord is the TaskStore view of one Assigning/Running task:
// the persisted status plus the volatile cache observations.
type MonitoredTaskRecord struct {
	ID               string              `json:"id"`
	ClassName        string              `json:"className"`
	Executor         string              `json:"executor"`
	Status           TaskLifecycleStatus `json:"lifecycleStatus"`
	Heartbeat        int                 `json:"heartbeat"`
	Error            string              `json:"error,omitempty"`
	Exception        string              `json:"exception,omitempty"`
	HeartbeatHistory []int               `json:"heartbeatHistory"`
	AssigningSince   int64               `json:"assigningSince,omitempty"`
	UpdatedAt        int64               `json:"updatedAt"`
}

// HistorySaturated reports whether the sliding heartbeat window is full and
// every sample equals the latest value.
func (r *MonitoredTaskRecord) HistorySaturated(window int) bool {
	if window <= 0 || len(r.HeartbeatHistory) < window {
		return false
	}
	first := r.HeartbeatHistory[len(r.HeartbeatHistory)-window]
	for _, hb := range r.HeartbeatHistory[len(r.HeartbeatHistory)-window:] {
		if hb != first {
			return false
		}
	}
	return true
}
