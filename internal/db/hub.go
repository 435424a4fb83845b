package db

import (
	"context"
	"sync"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
)

// hub fans change notifications out to in-process subscribers
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func()
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]func())}
}

func (h *hub) subscribe(topic string, fn func()) model.CancelFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]func())
	}
	h.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[topic], id)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
		})
	}
}

// publish calls subscribers outside the lock so they may subscribe or cancel
func (h *hub) publish(topic string) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs[topic]))
	for _, fn := range h.subs[topic] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func tasksTopic(projectID string) string      { return "tasks/" + projectID }
func projectTopic(projectID string) string    { return "project/" + projectID }
func activitiesTopic(projectID string) string { return "activities/" + projectID }

// SubscribeTasks implements model.TaskStore
func (db *DB) SubscribeTasks(projectID string, fn func([]model.Task)) model.CancelFunc {
	return db.hub.subscribe(tasksTopic(projectID), func() {
		tasks, err := db.ReadTasks(context.Background(), projectID)
		if err != nil {
			logger.Warn("Task snapshot failed", logger.F("project", projectID), logger.Err(err))
			return
		}
		fn(tasks)
	})
}

// SubscribeProject implements model.ProjectStore
func (db *DB) SubscribeProject(projectID string, fn func(model.Project)) model.CancelFunc {
	return db.hub.subscribe(projectTopic(projectID), func() {
		p, err := db.ReadProject(context.Background(), projectID)
		if err != nil {
			logger.Warn("Project snapshot failed", logger.F("project", projectID), logger.Err(err))
			return
		}
		fn(p)
	})
}

// SubscribeActivities implements model.ActivityStore
func (db *DB) SubscribeActivities(projectID string, fn func([]model.Activity)) model.CancelFunc {
	return db.hub.subscribe(activitiesTopic(projectID), func() {
		entries, err := db.ReadActivities(context.Background(), projectID)
		if err != nil {
			logger.Warn("Activity snapshot failed", logger.F("project", projectID), logger.Err(err))
			return
		}
		fn(entries)
	})
}
