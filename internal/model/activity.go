package model

import "time"

// ActivityKind classifies log entries.
type ActivityKind string

const (
	ActivityMoved     ActivityKind = "moved"
	ActivityUpdated   ActivityKind = "updated"
	ActivityCompleted ActivityKind = "completed"
)

// Activity is one append-only entry in a project's log.
type Activity struct {
	ID        int64        `json:"id"`
	ProjectID string       `json:"project_id"`
	Kind      ActivityKind `json:"kind"`
	Text      string       `json:"text"`
	ActorName string       `json:"actor_name"`
	CreatedAt time.Time    `json:"created_at"`
}
