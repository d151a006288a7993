package model

import "time"

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "Not Started"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

var TaskStatuses = []TaskStatus{TaskNotStarted, TaskInProgress, TaskCompleted}

type Task struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"eventId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  *int64     `json:"assignedTo,omitempty"`
	Priority    Priority   `json:"priority"`
	Deadline    time.Time  `json:"deadline"`
	Status      TaskStatus `json:"status"`
	Comments    []string   `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) GetID() int64   { return t.ID }
func (t *Task) SetID(id int64) { t.ID = id }

func (t *Task) Stamp(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
