package workflow

import (
	"math"

	"github.com/existflow/secureplan/internal/model"
)

// Progress returns the rounded percentage of done tasks, 0 when there are none.
// It reaches 100 only when every task is done.
func Progress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Status == model.StatusDone {
			done++
		}
	}
	p := int(math.Round(100 * float64(done) / float64(len(tasks))))
	// rounding reaches 100 early only from 200 tasks up, above the roadmap limit
	if p == 100 && done < len(tasks) {
		return 99
	}
	return p
}

// CanComplete reports whether the completion trigger is available.
func CanComplete(project model.Project, tasks []model.Task) bool {
	return !project.IsCompleted() && Progress(tasks) == 100
}

// WatchProgress recomputes progress from every task snapshot the store publishes.
func WatchProgress(store model.TaskStore, projectID string, fn func(int)) model.CancelFunc {
	return store.SubscribeTasks(projectID, func(tasks []model.Task) {
		fn(Progress(tasks))
	})
}
