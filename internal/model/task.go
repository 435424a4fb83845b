package model

import (
	"strings"
	"time"
)

// Priority levels for tasks
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium" // default
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a stored value to a Priority, falling back to medium.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(s)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// DefaultLinkName is used when a link is added without a name.
const DefaultLinkName = "Link"

// Link is a named reference attached to a task
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// TeamMember is a roster entry used while parsing a roadmap.
type TeamMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Task represents a single roadmap item
type Task struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	AssigneeID   string     `json:"assignee_id"`
	AssigneeName string     `json:"assignee_name"`
	Priority     Priority   `json:"priority"`
	Tags         []string   `json:"tags"`
	Status       Status     `json:"status"`
	Notes        string     `json:"notes"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Links        []Link     `json:"links"`
	Position     int        `json:"position"` // line order within the roadmap
	CreatedAt    time.Time  `json:"created_at"`
	Version      int64      `json:"version"`
}

// NewTask creates a new task with defaults
func NewTask(title string, assignee TeamMember, now time.Time) Task {
	return Task{
		Title:        title,
		AssigneeID:   assignee.ID,
		AssigneeName: assignee.DisplayName,
		Priority:     PriorityMedium,
		Tags:         []string{},
		Status:       StatusTodo,
		Links:        []Link{},
		CreatedAt:    now,
	}
}

// IsAssignee reports whether userID owns the task.
func (t *Task) IsAssignee(userID string) bool {
	return userID != "" && t.AssigneeID == userID
}

// IsOverdue returns true if the task is past its due date and not done
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone {
		return false
	}
	return t.DueDate.Before(now)
}
