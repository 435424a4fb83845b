// Package testutil provides in-memory implementations of the store ports for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/existflow/secureplan/internal/model"
)

// MockClock is a settable clock.
type MockClock struct {
	mu      sync.Mutex
	NowTime time.Time
}

// Now returns the current mock time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.NowTime
}

// Advance moves the clock forward.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NowTime = c.NowTime.Add(d)
}

// MemStore implements model.Store, model.SideStore, model.PrivacyStore and
// model.FriendStore in memory with the same versioning rules as the SQL store.
type MemStore struct {
	mu         sync.Mutex
	Projects   map[string]model.Project
	Tasks      map[string]map[string]model.Task
	Activities map[string][]model.Activity
	Marks      map[string]int
	Privacy    map[string]model.PrivacySettings
	Friends    map[string]map[string]bool

	// Fail forces every call of the named method to return the error.
	Fail map[string]error

	nextActivity int64
	nextSub      int
	taskSubs     map[string]map[int]func([]model.Task)
	projectSubs  map[string]map[int]func(model.Project)
	activitySubs map[string]map[int]func([]model.Activity)
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		Projects:     map[string]model.Project{},
		Tasks:        map[string]map[string]model.Task{},
		Activities:   map[string][]model.Activity{},
		Marks:        map[string]int{},
		Privacy:      map[string]model.PrivacySettings{},
		Friends:      map[string]map[string]bool{},
		Fail:         map[string]error{},
		taskSubs:     map[string]map[int]func([]model.Task){},
		projectSubs:  map[string]map[int]func(model.Project){},
		activitySubs: map[string]map[int]func([]model.Activity){},
	}
}

var _ model.Store = (*MemStore)(nil)

// Seed stores a project and tasks directly, bypassing versioning.
func (s *MemStore) Seed(project model.Project, tasks ...model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Projects[project.ID] = cloneProject(project)
	if s.Tasks[project.ID] == nil {
		s.Tasks[project.ID] = map[string]model.Task{}
	}
	for _, t := range tasks {
		t.ProjectID = project.ID
		s.Tasks[project.ID][t.ID] = cloneTask(t)
	}
}

// AddFriends records a mutual friendship.
func (s *MemStore) AddFriends(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if s.Friends[pair[0]] == nil {
			s.Friends[pair[0]] = map[string]bool{}
		}
		s.Friends[pair[0]][pair[1]] = true
	}
}

func (s *MemStore) fail(method string) error {
	return s.Fail[method]
}

// ReadTasks implements model.TaskStore.
func (s *MemStore) ReadTasks(_ context.Context, projectID string) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ReadTasks"); err != nil {
		return nil, err
	}
	return s.snapshotTasks(projectID), nil
}

// ReadTask implements model.TaskStore.
func (s *MemStore) ReadTask(_ context.Context, projectID, taskID string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ReadTask"); err != nil {
		return model.Task{}, err
	}
	t, ok := s.Tasks[projectID][taskID]
	if !ok {
		return model.Task{}, model.ErrNotFound
	}
	return cloneTask(t), nil
}

// WriteTask implements model.TaskStore.
func (s *MemStore) WriteTask(_ context.Context, projectID string, task model.Task) error {
	s.mu.Lock()
	if err := s.fail("WriteTask"); err != nil {
		s.mu.Unlock()
		return err
	}
	current, ok := s.Tasks[projectID][task.ID]
	if !ok {
		s.mu.Unlock()
		return model.ErrNotFound
	}
	if current.Version != task.Version {
		s.mu.Unlock()
		return model.ErrConflict
	}
	task.ProjectID = projectID
	task.Version++
	s.Tasks[projectID][task.ID] = cloneTask(task)
	snapshot := s.snapshotTasks(projectID)
	subs := collect(s.taskSubs[projectID])
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// SubscribeTasks implements model.TaskStore.
func (s *MemStore) SubscribeTasks(projectID string, fn func([]model.Task)) model.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.taskSubs[projectID] == nil {
		s.taskSubs[projectID] = map[int]func([]model.Task){}
	}
	s.taskSubs[projectID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.taskSubs[projectID], id)
	}
}

// CreateProject implements model.ProjectStore.
func (s *MemStore) CreateProject(_ context.Context, project model.Project, tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateProject"); err != nil {
		return err
	}
	s.Projects[project.ID] = cloneProject(project)
	s.Tasks[project.ID] = map[string]model.Task{}
	for _, t := range tasks {
		t.ProjectID = project.ID
		s.Tasks[project.ID][t.ID] = cloneTask(t)
	}
	return nil
}

// ReadProject implements model.ProjectStore.
func (s *MemStore) ReadProject(_ context.Context, projectID string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ReadProject"); err != nil {
		return model.Project{}, err
	}
	p, ok := s.Projects[projectID]
	if !ok {
		return model.Project{}, model.ErrNotFound
	}
	return cloneProject(p), nil
}

// WriteProject implements model.ProjectStore.
func (s *MemStore) WriteProject(_ context.Context, project model.Project) error {
	s.mu.Lock()
	if err := s.fail("WriteProject"); err != nil {
		s.mu.Unlock()
		return err
	}
	current, ok := s.Projects[project.ID]
	if !ok {
		s.mu.Unlock()
		return model.ErrNotFound
	}
	if current.Version != project.Version {
		s.mu.Unlock()
		return model.ErrConflict
	}
	project.Version++
	s.Projects[project.ID] = cloneProject(project)
	subs := collect(s.projectSubs[project.ID])
	snapshot := cloneProject(project)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// DeleteProject implements model.ProjectStore.
func (s *MemStore) DeleteProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteProject"); err != nil {
		return err
	}
	if _, ok := s.Projects[projectID]; !ok {
		return model.ErrNotFound
	}
	delete(s.Projects, projectID)
	delete(s.Tasks, projectID)
	delete(s.Activities, projectID)
	return nil
}

// ListProjectsFor implements model.ProjectStore.
func (s *MemStore) ListProjectsFor(_ context.Context, userID string) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListProjectsFor"); err != nil {
		return nil, err
	}
	var out []model.Project
	for _, p := range s.Projects {
		if p.HasMember(userID) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubscribeProject implements model.ProjectStore.
func (s *MemStore) SubscribeProject(projectID string, fn func(model.Project)) model.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.projectSubs[projectID] == nil {
		s.projectSubs[projectID] = map[int]func(model.Project){}
	}
	s.projectSubs[projectID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.projectSubs[projectID], id)
	}
}

// AppendActivity implements model.ActivityStore.
func (s *MemStore) AppendActivity(_ context.Context, projectID string, entry model.Activity) error {
	s.mu.Lock()
	if err := s.fail("AppendActivity"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.nextActivity++
	entry.ID = s.nextActivity
	entry.ProjectID = projectID
	s.Activities[projectID] = append(s.Activities[projectID], entry)
	snapshot := append([]model.Activity(nil), s.Activities[projectID]...)
	subs := collect(s.activitySubs[projectID])
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// ReadActivities implements model.ActivityStore.
func (s *MemStore) ReadActivities(_ context.Context, projectID string) ([]model.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ReadActivities"); err != nil {
		return nil, err
	}
	return append([]model.Activity(nil), s.Activities[projectID]...), nil
}

// SubscribeActivities implements model.ActivityStore.
func (s *MemStore) SubscribeActivities(projectID string, fn func([]model.Activity)) model.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.activitySubs[projectID] == nil {
		s.activitySubs[projectID] = map[int]func([]model.Activity){}
	}
	s.activitySubs[projectID][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.activitySubs[projectID], id)
	}
}

// GetWatermark implements model.SideStore.
func (s *MemStore) GetWatermark(_ context.Context, viewerID, projectID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetWatermark"); err != nil {
		return 0, err
	}
	return s.Marks[viewerID+"/"+projectID], nil
}

// SetWatermark implements model.SideStore.
func (s *MemStore) SetWatermark(_ context.Context, viewerID, projectID string, watermark int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetWatermark"); err != nil {
		return err
	}
	s.Marks[viewerID+"/"+projectID] = watermark
	return nil
}

// GetPrivacy implements model.PrivacyStore.
func (s *MemStore) GetPrivacy(_ context.Context, userID string) (model.PrivacySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Privacy[userID], nil
}

// AreFriends implements model.FriendStore.
func (s *MemStore) AreFriends(_ context.Context, userID, otherID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Friends[userID][otherID], nil
}

// ErrInjected is a convenience error for Fail.
var ErrInjected = errors.New("injected failure")

func (s *MemStore) snapshotTasks(projectID string) []model.Task {
	out := make([]model.Task, 0, len(s.Tasks[projectID]))
	for _, t := range s.Tasks[projectID] {
		out = append(out, cloneTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if out[i].Position != out[j].Position {
				return out[i].Position < out[j].Position
			}
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func collect[F any](m map[int]F) []F {
	out := make([]F, 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

func cloneTask(t model.Task) model.Task {
	t.Tags = append([]string{}, t.Tags...)
	t.Links = append([]model.Link{}, t.Links...)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

func cloneProject(p model.Project) model.Project {
	p.MemberIDs = append([]string{}, p.MemberIDs...)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		p.CompletedAt = &at
	}
	return p
}
