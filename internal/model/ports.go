package model

import (
	"context"
	"time"
)

// CancelFunc stops a subscription. Calling it more than once is safe.
type CancelFunc func()

// TaskStore manages task persistence.
type TaskStore interface {
	// ReadTasks returns every task of a project ordered by creation time.
	ReadTasks(ctx context.Context, projectID string) ([]Task, error)

	// ReadTask returns one task or ErrNotFound.
	ReadTask(ctx context.Context, projectID, taskID string) (Task, error)

	// WriteTask replaces a task if its stored version still equals task.Version.
	// On success the stored version is incremented; otherwise ErrConflict.
	WriteTask(ctx context.Context, projectID string, task Task) error

	// SubscribeTasks calls fn with a fresh snapshot after every task change.
	SubscribeTasks(projectID string, fn func([]Task)) CancelFunc
}

// ProjectStore manages project persistence.
type ProjectStore interface {
	// CreateProject inserts the project and its tasks in one batch.
	CreateProject(ctx context.Context, project Project, tasks []Task) error

	// ReadProject returns a project or ErrNotFound.
	ReadProject(ctx context.Context, projectID string) (Project, error)

	// WriteProject replaces a project under the same versioning rule as WriteTask.
	WriteProject(ctx context.Context, project Project) error

	// DeleteProject removes a project with its tasks and activities.
	DeleteProject(ctx context.Context, projectID string) error

	// ListProjectsFor returns the projects userID is a member of.
	ListProjectsFor(ctx context.Context, userID string) ([]Project, error)

	// SubscribeProject calls fn after every change to the project.
	SubscribeProject(projectID string, fn func(Project)) CancelFunc
}

// ActivityStore manages the append-only activity log.
type ActivityStore interface {
	// AppendActivity adds an entry; entries are never updated or removed.
	AppendActivity(ctx context.Context, projectID string, entry Activity) error

	// ReadActivities returns entries oldest first.
	ReadActivities(ctx context.Context, projectID string) ([]Activity, error)

	// SubscribeActivities calls fn with the full log after every append.
	SubscribeActivities(projectID string, fn func([]Activity)) CancelFunc
}

// Store bundles the persistence ports the workflow engine needs.
type Store interface {
	TaskStore
	ProjectStore
	ActivityStore
}

// SideStore keeps per-viewer read watermarks.
type SideStore interface {
	GetWatermark(ctx context.Context, viewerID, projectID string) (int, error)
	SetWatermark(ctx context.Context, viewerID, projectID string, watermark int) error
}

// PrivacyStore exposes a user's privacy settings read-only.
type PrivacyStore interface {
	GetPrivacy(ctx context.Context, userID string) (PrivacySettings, error)
}

// FriendStore answers friendship queries.
type FriendStore interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

// IdentityProvider resolves the caller of the current request.
type IdentityProvider interface {
	CurrentActor(ctx context.Context) (Actor, error)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }
