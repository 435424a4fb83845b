package db

import (
	"context"
	"fmt"

	"github.com/existflow/secureplan/internal/model"
)

// AppendActivity implements model.ActivityStore
func (db *DB) AppendActivity(ctx context.Context, projectID string, entry model.Activity) error {
	var id int64
	err := db.queryRow(ctx, `
		INSERT INTO activities (project_id, kind, text, actor_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		projectID, string(entry.Kind), entry.Text, entry.ActorName, formatTime(entry.CreatedAt),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	db.hub.publish(activitiesTopic(projectID))
	return nil
}

// ReadActivities implements model.ActivityStore, oldest first
func (db *DB) ReadActivities(ctx context.Context, projectID string) ([]model.Activity, error) {
	rows, err := db.query(ctx, `
		SELECT id, project_id, kind, text, actor_name, created_at
		FROM activities WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	entries := []model.Activity{}
	for rows.Next() {
		var (
			a       model.Activity
			kind    string
			created string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &kind, &a.Text, &a.ActorName, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Kind = model.ActivityKind(kind)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// GetWatermark implements model.SideStore. Unknown pairs start at zero.
func (db *DB) GetWatermark(ctx context.Context, viewerID, projectID string) (int, error) {
	var mark int
	err := db.queryRow(ctx, `
		SELECT COALESCE(MAX(watermark), 0) FROM read_marks
		WHERE viewer_id = ? AND project_id = ?`, viewerID, projectID).Scan(&mark)
	if err != nil {
		return 0, fmt.Errorf("query watermark: %w", err)
	}
	return mark, nil
}

// SetWatermark implements model.SideStore
func (db *DB) SetWatermark(ctx context.Context, viewerID, projectID string, watermark int) error {
	_, err := db.exec(ctx, db.DB, `
		INSERT INTO read_marks (viewer_id, project_id, watermark) VALUES (?, ?, ?)
		ON CONFLICT (viewer_id, project_id) DO UPDATE SET watermark = excluded.watermark`,
		viewerID, projectID, watermark)
	if err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
