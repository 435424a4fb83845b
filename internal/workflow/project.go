package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/roadmap"
	"github.com/google/uuid"
)

// CreateProject validates and parses a roadmap, then stores the project and its
// tasks in one batch. The roster is the team followed by the owner.
func (e *Engine) CreateProject(ctx context.Context, owner model.Actor, name, text string, team []model.TeamMember) (model.Project, []model.Task, error) {
	roster := Roster(owner, team)
	now := e.clock.Now()

	tasks, err := roadmap.ValidateSubmission(name, text, roster, now)
	if err != nil {
		return model.Project{}, nil, err
	}

	memberIDs := make([]string, 0, len(roster))
	for _, m := range roster {
		memberIDs = append(memberIDs, m.ID)
	}

	project := model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   owner.ID,
		MemberIDs: memberIDs,
		Status:    model.ProjectActive,
		CreatedAt: now,
	}
	for i := range tasks {
		tasks[i].ID = uuid.NewString()
		tasks[i].ProjectID = project.ID
	}

	if err := e.store.CreateProject(ctx, project, tasks); err != nil {
		return model.Project{}, nil, fmt.Errorf("create project: %w", err)
	}

	logger.Info("Project created",
		logger.F("project", project.ID),
		logger.F("owner", owner.ID),
		logger.F("tasks", len(tasks)),
		logger.F("members", len(memberIDs)))
	return project, tasks, nil
}

// Roster builds the parse roster: team members in the given order, owner last.
// Duplicate ids keep their first position.
func Roster(owner model.Actor, team []model.TeamMember) []model.TeamMember {
	seen := make(map[string]bool, len(team)+1)
	roster := make([]model.TeamMember, 0, len(team)+1)
	for _, m := range team {
		if m.ID == "" || m.ID == owner.ID || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		roster = append(roster, m)
	}
	return append(roster, model.TeamMember{ID: owner.ID, DisplayName: owner.DisplayName})
}

// DeleteProject removes a project. Only its owner may delete it.
func (e *Engine) DeleteProject(ctx context.Context, projectID string, actor model.Actor) (Outcome, error) {
	project, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("read project: %w", err)
	}
	if project.OwnerID != actor.ID {
		return OutcomeDenied, nil
	}
	if err := e.store.DeleteProject(ctx, projectID); err != nil {
		return OutcomeNoop, fmt.Errorf("delete project: %w", err)
	}
	logger.Info("Project deleted", logger.F("project", projectID), logger.F("owner", actor.ID))
	return OutcomeApplied, nil
}

// Board is a read snapshot of one project.
type Board struct {
	Project     model.Project `json:"project"`
	Tasks       []model.Task  `json:"tasks"`
	Progress    int           `json:"progress"`
	CanComplete bool          `json:"can_complete"`
}

// Column returns the tasks currently in stage s.
func (b *Board) Column(s model.Status) []model.Task {
	var out []model.Task
	for _, t := range b.Tasks {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

// NewBoard derives progress and the completion guard from a snapshot.
func NewBoard(project model.Project, tasks []model.Task) Board {
	sorted := make([]model.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].Position < sorted[j].Position
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return Board{
		Project:     project,
		Tasks:       sorted,
		Progress:    Progress(sorted),
		CanComplete: CanComplete(project, sorted),
	}
}

// Board loads a project snapshot for a member.
func (e *Engine) Board(ctx context.Context, projectID string, viewer model.Actor) (Board, error) {
	project, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return Board{}, fmt.Errorf("read project: %w", err)
	}
	if !project.HasMember(viewer.ID) {
		return Board{}, model.ErrNotMember
	}
	tasks, err := e.store.ReadTasks(ctx, projectID)
	if err != nil {
		return Board{}, fmt.Errorf("read tasks: %w", err)
	}
	return NewBoard(project, tasks), nil
}

// StatusFilter selects projects by lifecycle state.
type StatusFilter string

const (
	FilterActive    StatusFilter = "active"
	FilterCompleted StatusFilter = "completed"
	FilterAll       StatusFilter = "all"
)

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Status StatusFilter
	Search string
}

// ListProjects returns the viewer's projects, newest first.
func (e *Engine) ListProjects(ctx context.Context, viewer model.Actor, filter ProjectFilter) ([]model.Project, error) {
	projects, err := e.store.ListProjectsFor(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		switch filter.Status {
		case FilterActive, "":
			if p.IsCompleted() {
				continue
			}
		case FilterCompleted:
			if !p.IsCompleted() {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FilterTasks keeps tasks assigned to viewerID (when mineOnly) whose title or any
// tag contains search, case-insensitively.
func FilterTasks(tasks []model.Task, viewerID string, mineOnly bool, search string) []model.Task {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if mineOnly && t.AssigneeID != viewerID {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t model.Task, search string) bool {
	if strings.Contains(strings.ToLower(t.Title), search) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}
