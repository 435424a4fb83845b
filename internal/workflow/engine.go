// Package workflow moves tasks through the fixed four-stage workflow and
// manages the project lifecycle around it.
package workflow

import (
	"context"
	"fmt"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
)

// labelLength is how much of a task title activity entries quote.
const labelLength = 15

// CompletedText is the activity recorded when a project is completed.
const CompletedText = "PROJECT COMPLETED SUCCESSFULLY"

// Engine applies workflow rules on top of a store.
type Engine struct {
	store model.Store
	clock model.Clock
}

// NewEngine creates a new Engine.
func NewEngine(store model.Store, clock model.Clock) *Engine {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return &Engine{store: store, clock: clock}
}

// Move shifts a task one stage forward or back. Only the assignee may move a task.
// A lost concurrent write returns model.ErrConflict and records nothing.
func (e *Engine) Move(ctx context.Context, projectID, taskID string, dir Direction, actor model.Actor) (Outcome, error) {
	if dir != Next && dir != Prev {
		return OutcomeNoop, ErrInvalidDirection
	}
	return e.mutateTask(ctx, projectID, taskID, actor, model.ActivityMoved, func(t *model.Task) (Outcome, string) {
		target, ok := step(t.Status, dir)
		if !ok {
			return OutcomeOutOfRange, ""
		}
		t.Status = target
		return OutcomeApplied, fmt.Sprintf("moved '%s' to '%s'", truncateLabel(t.Title), target.Display())
	})
}

// Complete marks the project completed once every task is done. The transition is
// one-way: calling it again is a no-op.
func (e *Engine) Complete(ctx context.Context, projectID string, actor model.Actor) (Outcome, error) {
	project, err := e.store.ReadProject(ctx, projectID)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("read project: %w", err)
	}
	if !project.HasMember(actor.ID) {
		logger.Debug("Completion refused", logger.F("project", projectID), logger.F("actor", actor.ID))
		return OutcomeDenied, nil
	}

	tasks, err := e.store.ReadTasks(ctx, projectID)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("read tasks: %w", err)
	}
	if !CanComplete(project, tasks) {
		return OutcomeNoop, nil
	}

	now := e.clock.Now()
	project.Status = model.ProjectCompleted
	project.CompletedAt = &now
	if err := e.store.WriteProject(ctx, project); err != nil {
		return OutcomeNoop, fmt.Errorf("write project: %w", err)
	}

	logger.Info("Project completed", logger.F("project", projectID), logger.F("actor", actor.ID))
	if err := e.record(ctx, projectID, model.ActivityCompleted, actor, CompletedText); err != nil {
		return OutcomeApplied, err
	}
	return OutcomeApplied, nil
}

// mutateTask runs a read-modify-write cycle on one task owned by actor.
// fn edits the task in place and returns the activity text when it applied a change.
func (e *Engine) mutateTask(ctx context.Context, projectID, taskID string, actor model.Actor, kind model.ActivityKind,
	fn func(t *model.Task) (Outcome, string)) (Outcome, error) {
	task, err := e.store.ReadTask(ctx, projectID, taskID)
	if err != nil {
		return OutcomeNoop, fmt.Errorf("read task: %w", err)
	}
	if !task.IsAssignee(actor.ID) {
		logger.Debug("Task mutation refused",
			logger.F("task", taskID),
			logger.F("actor", actor.ID),
			logger.F("assignee", task.AssigneeID))
		return OutcomeDenied, nil
	}

	outcome, text := fn(&task)
	if outcome != OutcomeApplied {
		return outcome, nil
	}

	if err := e.store.WriteTask(ctx, projectID, task); err != nil {
		return OutcomeNoop, fmt.Errorf("write task: %w", err)
	}
	if err := e.record(ctx, projectID, kind, actor, text); err != nil {
		// the task change is already persisted
		return OutcomeApplied, err
	}
	return OutcomeApplied, nil
}

// record appends an activity entry stamped with the engine clock.
func (e *Engine) record(ctx context.Context, projectID string, kind model.ActivityKind, actor model.Actor, text string) error {
	entry := model.Activity{
		ProjectID: projectID,
		Kind:      kind,
		Text:      text,
		ActorName: actor.DisplayName,
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.AppendActivity(ctx, projectID, entry); err != nil {
		logger.Warn("Failed to append activity", logger.F("project", projectID), logger.Err(err))
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// truncateLabel shortens a title for activity text.
func truncateLabel(title string) string {
	r := []rune(title)
	if len(r) > labelLength {
		r = r[:labelLength]
	}
	return string(r) + "..."
}
