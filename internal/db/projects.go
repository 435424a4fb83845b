package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/existflow/secureplan/internal/model"
)

// CreateProject inserts the project, its members and its tasks in one transaction
func (db *DB) CreateProject(ctx context.Context, project model.Project, tasks []model.Task) error {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.exec(ctx, tx, `
			INSERT INTO projects (id, name, owner_id, status, created_at, completed_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			project.ID, project.Name, project.OwnerID, string(project.Status),
			formatTime(project.CreatedAt), formatTimePtr(project.CompletedAt), project.Version,
		); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if err := db.insertMembers(ctx, tx, project); err != nil {
			return err
		}
		for _, t := range tasks {
			t.ProjectID = project.ID
			if err := db.insertTask(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.hub.publish(projectTopic(project.ID))
	db.hub.publish(tasksTopic(project.ID))
	return nil
}

func (db *DB) insertMembers(ctx context.Context, tx *sql.Tx, project model.Project) error {
	for i, id := range project.MemberIDs {
		if _, err := db.exec(ctx, tx, `
			INSERT INTO project_members (project_id, user_id, position) VALUES (?, ?, ?)`,
			project.ID, id, i,
		); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

// ReadProject implements model.ProjectStore
func (db *DB) ReadProject(ctx context.Context, projectID string) (model.Project, error) {
	row := db.queryRow(ctx, `
		SELECT id, name, owner_id, status, created_at, completed_at, version
		FROM projects WHERE id = ?`, projectID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, model.ErrNotFound
	}
	if err != nil {
		return model.Project{}, err
	}

	members, err := db.members(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}
	p.MemberIDs = members
	return p, nil
}

func (db *DB) members(ctx context.Context, projectID string) ([]string, error) {
	rows, err := db.query(ctx, `
		SELECT user_id FROM project_members WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (model.Project, error) {
	var (
		p           model.Project
		status      string
		createdAt   string
		completedAt sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &p.OwnerID, &status, &createdAt, &completedAt, &p.Version); err != nil {
		return model.Project{}, err
	}
	p.Status = model.ProjectStatus(status)

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Project{}, err
	}
	if p.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// WriteProject stores project if its version still matches and bumps the version
func (db *DB) WriteProject(ctx context.Context, project model.Project) error {
	res, err := db.exec(ctx, db.DB, `
		UPDATE projects SET name = ?, status = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		project.Name, string(project.Status), formatTimePtr(project.CompletedAt),
		project.ID, project.Version,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := db.checkSwapped(ctx, res, "projects", project.ID); err != nil {
		return err
	}
	db.hub.publish(projectTopic(project.ID))
	return nil
}

// checkSwapped turns a zero-row CAS update into ErrConflict or ErrNotFound
func (db *DB) checkSwapped(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = db.queryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	return model.ErrConflict
}

// DeleteProject removes a project with its members, tasks and activity log
func (db *DB) DeleteProject(ctx context.Context, projectID string) error {
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM activities WHERE project_id = ?",
			"DELETE FROM tasks WHERE project_id = ?",
			"DELETE FROM project_members WHERE project_id = ?",
			"DELETE FROM read_marks WHERE project_id = ?",
		} {
			if _, err := db.exec(ctx, tx, q, projectID); err != nil {
				return fmt.Errorf("delete project rows: %w", err)
			}
		}
		res, err := db.exec(ctx, tx, "DELETE FROM projects WHERE id = ?", projectID)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.hub.publish(projectTopic(projectID))
	return nil
}

// ListProjectsFor returns the projects userID is a member of
func (db *DB) ListProjectsFor(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := db.query(ctx, `
		SELECT p.id, p.name, p.owner_id, p.status, p.created_at, p.completed_at, p.version
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// members are loaded after the cursor is closed; sqlite runs on one connection
	for i := range projects {
		members, err := db.members(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].MemberIDs = members
	}
	return projects, nil
}
