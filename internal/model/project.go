package model

import (
	"slices"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

// Project represents one submitted roadmap and its team
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	OwnerID     string        `json:"owner_id"`
	MemberIDs   []string      `json:"member_ids"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Version     int64         `json:"version"`
}

// HasMember reports whether userID belongs to the project team.
func (p *Project) HasMember(userID string) bool {
	return slices.Contains(p.MemberIDs, userID)
}

// IsCompleted reports whether the one-way completion already happened.
func (p *Project) IsCompleted() bool {
	return p.Status == ProjectCompleted
}
