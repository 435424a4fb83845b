package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/existflow/secureplan/internal/model"
)

const taskColumns = `id, project_id, title, assignee_id, assignee_name, priority, tags,
	status, notes, due_date, links, position, created_at, version`

func (db *DB) insertTask(ctx context.Context, tx *sql.Tx, t model.Task) error {
	tags, links, err := encodeLists(t)
	if err != nil {
		return err
	}
	if _, err := db.exec(ctx, tx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.AssigneeID, t.AssigneeName, string(t.Priority), tags,
		string(t.Status), t.Notes, formatTimePtr(t.DueDate), links, t.Position,
		formatTime(t.CreatedAt), t.Version,
	); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func encodeLists(t model.Task) (string, string, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	links := t.Links
	if links == nil {
		links = []model.Link{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	linkJSON, err := json.Marshal(links)
	if err != nil {
		return "", "", fmt.Errorf("encode links: %w", err)
	}
	return string(tagJSON), string(linkJSON), nil
}

func scanTask(s scanner) (model.Task, error) {
	var (
		t                    model.Task
		priority, status     string
		tags, links, created string
		due                  sql.NullString
	)
	if err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &t.AssigneeID, &t.AssigneeName, &priority, &tags,
		&status, &t.Notes, &due, &links, &t.Position, &created, &t.Version); err != nil {
		return model.Task{}, err
	}
	t.Priority = model.Priority(priority)
	t.Status = model.Status(status)

	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return model.Task{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(links), &t.Links); err != nil {
		return model.Task{}, fmt.Errorf("decode links: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Links == nil {
		t.Links = []model.Link{}
	}

	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return model.Task{}, err
	}
	if t.DueDate, err = parseTimePtr(due); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// ReadTasks implements model.TaskStore, ordered by creation time then roadmap line
func (db *DB) ReadTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	rows, err := db.query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE project_id = ? ORDER BY created_at, position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ReadTask implements model.TaskStore
func (db *DB) ReadTask(ctx context.Context, projectID, taskID string) (model.Task, error) {
	row := db.queryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE project_id = ? AND id = ?`, projectID, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, model.ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

// WriteTask stores task if its version still matches and bumps the version.
// A stale version yields model.ErrConflict.
func (db *DB) WriteTask(ctx context.Context, projectID string, task model.Task) error {
	tags, links, err := encodeLists(task)
	if err != nil {
		return err
	}
	res, err := db.exec(ctx, db.DB, `
		UPDATE tasks SET title = ?, assignee_id = ?, assignee_name = ?, priority = ?, tags = ?,
			status = ?, notes = ?, due_date = ?, links = ?, version = version + 1
		WHERE project_id = ? AND id = ? AND version = ?`,
		task.Title, task.AssigneeID, task.AssigneeName, string(task.Priority), tags,
		string(task.Status), task.Notes, formatTimePtr(task.DueDate), links,
		projectID, task.ID, task.Version,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := db.checkSwapped(ctx, res, "tasks", task.ID); err != nil {
		return err
	}
	db.hub.publish(tasksTopic(projectID))
	return nil
}
