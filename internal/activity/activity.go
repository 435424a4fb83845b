// Package activity computes unread counts and feeds over a project's append-only log.
package activity

import (
	"context"
	"fmt"
	"sort"

	"github.com/existflow/secureplan/internal/model"
)

// Unread returns how many entries were appended since the watermark.
// A watermark ahead of total (e.g. after a project reset) counts as nothing unread.
func Unread(total, watermark int) int {
	if watermark < 0 {
		watermark = 0
	}
	if total <= watermark {
		return 0
	}
	return total - watermark
}

// Tracker combines the log with per-viewer watermarks.
type Tracker struct {
	Activities model.ActivityStore
	Marks      model.SideStore
}

// NewTracker creates a Tracker.
func NewTracker(activities model.ActivityStore, marks model.SideStore) *Tracker {
	return &Tracker{Activities: activities, Marks: marks}
}

// Unread returns the viewer's unread count for a project.
func (t *Tracker) Unread(ctx context.Context, viewerID, projectID string) (int, error) {
	entries, err := t.Activities.ReadActivities(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("read activities: %w", err)
	}
	mark, err := t.Marks.GetWatermark(ctx, viewerID, projectID)
	if err != nil {
		return 0, fmt.Errorf("get watermark: %w", err)
	}
	return Unread(len(entries), mark), nil
}

// MarkRead acknowledges every entry currently in the log and returns the new watermark.
func (t *Tracker) MarkRead(ctx context.Context, viewerID, projectID string) (int, error) {
	entries, err := t.Activities.ReadActivities(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("read activities: %w", err)
	}
	if err := t.Marks.SetWatermark(ctx, viewerID, projectID, len(entries)); err != nil {
		return 0, fmt.Errorf("set watermark: %w", err)
	}
	return len(entries), nil
}

// Feed returns the project log newest first.
func (t *Tracker) Feed(ctx context.Context, projectID string) ([]model.Activity, error) {
	entries, err := t.Activities.ReadActivities(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	return Newest(entries), nil
}

// WatchUnread reports the unread count for a fixed watermark on every log change.
func WatchUnread(store model.ActivityStore, projectID string, watermark int, fn func(int)) model.CancelFunc {
	return store.SubscribeActivities(projectID, func(entries []model.Activity) {
		fn(Unread(len(entries), watermark))
	})
}

// Oldest returns a copy ordered by creation time, ties broken by id.
func Oldest(entries []model.Activity) []model.Activity {
	out := make([]model.Activity, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

// Newest returns a copy in reverse creation order.
func Newest(entries []model.Activity) []model.Activity {
	out := make([]model.Activity, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return before(out[j], out[i]) })
	return out
}

func before(a, b model.Activity) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
