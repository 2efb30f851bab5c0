package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Statuses lists the legal task statuses in their declared order.
var Statuses = []string{string(StatusPending), string(StatusInProgress), string(StatusCompleted)}

// Priorities lists the legal task priorities in their declared order.
var Priorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status" enum:"pending,in_progress,completed"`
	Priority    Priority  `json:"priority" enum:"low,medium,high"`
	CreatedAt   time.Time `json:"created_at" format:"date-time"`
	UpdatedAt   time.Time `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts" format:"date-time"`
	RunID    string `json:"run_id"`
	Type     string `json:"type"`
	EntityID string `json:"entity_id,omitempty"`
	Payload  string `json:"payload_json"`
}
