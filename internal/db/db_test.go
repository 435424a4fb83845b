package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/testutil"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProject(t *testing.T, db *DB) (model.Project, []model.Task) {
	t.Helper()
	project := model.Project{
		ID:        "p1",
		Name:      "Op Nightfall",
		OwnerID:   "alice",
		MemberIDs: []string{"bob", "alice"},
		Status:    model.ProjectActive,
		CreatedAt: base,
	}
	due := base.Add(48 * time.Hour)
	tasks := []model.Task{
		{
			ID: "t1", Title: "Port scan", AssigneeID: "alice", AssigneeName: "alice",
			Priority: model.PriorityHigh, Tags: []string{"recon", "recon"}, Status: model.StatusTodo,
			Links: []model.Link{{URL: "https://scope.example", Name: "scope"}}, DueDate: &due,
			Position: 1, CreatedAt: base,
		},
		{
			ID: "t9", Title: "Scope review", AssigneeID: "bob", AssigneeName: "bob",
			Status: model.StatusTodo, Position: 0, CreatedAt: base,
		},
		{
			ID: "t2", Title: "Report writing", AssigneeID: "bob", AssigneeName: "bob",
			Priority: model.PriorityLow, Status: model.StatusTodo, Position: 2, CreatedAt: base,
		},
	}
	require.NoError(t, db.CreateProject(context.Background(), project, tasks))
	return project, tasks
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	lite := &DB{dialect: SQLite}
	q := "SELECT * FROM t WHERE a = ? AND b = ?"

	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.ErrorContains(t, err, "unsupported")
}

func TestProjects_CreateAndRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	p, err := db.ReadProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Op Nightfall", p.Name)
	assert.Equal(t, []string{"bob", "alice"}, p.MemberIDs)
	assert.Equal(t, base, p.CreatedAt)
	assert.Nil(t, p.CompletedAt)

	tasks, err := db.ReadTasks(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"t9", "t1", "t2"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	assert.Equal(t, []string{"recon", "recon"}, tasks[1].Tags)
	assert.Equal(t, []model.Link{{URL: "https://scope.example", Name: "scope"}}, tasks[1].Links)
	require.NotNil(t, tasks[1].DueDate)
	assert.Equal(t, base.Add(48*time.Hour), *tasks[1].DueDate)
	assert.Equal(t, 1, tasks[1].Position)
	assert.Equal(t, []string{}, tasks[2].Tags)
	assert.Equal(t, []model.Link{}, tasks[2].Links)

	_, err = db.ReadProject(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = db.ReadTask(ctx, "p1", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProjects_CreateIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	dup := model.Project{ID: "p2", Name: "dup", OwnerID: "alice", MemberIDs: []string{"alice"}, CreatedAt: base}
	err := db.CreateProject(ctx, dup, []model.Task{{ID: "t1", Title: "clash", CreatedAt: base}})
	require.Error(t, err)

	_, err = db.ReadProject(ctx, "p2")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTasks_CompareAndSwap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	first, err := db.ReadTask(ctx, "p1", "t1")
	require.NoError(t, err)
	second := first

	first.Status = model.StatusInProgress
	require.NoError(t, db.WriteTask(ctx, "p1", first))

	second.Status = model.StatusTodo
	second.Notes = "stale"
	assert.ErrorIs(t, db.WriteTask(ctx, "p1", second), model.ErrConflict)

	got, err := db.ReadTask(ctx, "p1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.Empty(t, got.Notes)

	ghost := model.Task{ID: "ghost"}
	assert.ErrorIs(t, db.WriteTask(ctx, "p1", ghost), model.ErrNotFound)
}

func TestTasks_ConcurrentWritersOnlyOneWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)
	start, err := db.ReadTask(ctx, "p1", "t2")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := start
			next.Status = model.StatusInProgress
			if err := db.WriteTask(ctx, "p1", next); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
}

func TestProjects_WriteCompleteAndConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	p, err := db.ReadProject(ctx, "p1")
	require.NoError(t, err)
	stale := p

	done := base.Add(time.Hour)
	p.Status = model.ProjectCompleted
	p.CompletedAt = &done
	require.NoError(t, db.WriteProject(ctx, p))
	assert.ErrorIs(t, db.WriteProject(ctx, stale), model.ErrConflict)

	got, err := db.ReadProject(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, done, *got.CompletedAt)
	assert.Equal(t, int64(1), got.Version)
}

func TestProjects_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)
	require.NoError(t, db.CreateProject(ctx, model.Project{
		ID: "p2", Name: "Later", OwnerID: "bob", MemberIDs: []string{"bob"},
		Status: model.ProjectActive, CreatedAt: base.Add(time.Hour),
	}, nil))
	require.NoError(t, db.AppendActivity(ctx, "p1", model.Activity{Kind: model.ActivityMoved, Text: "x", CreatedAt: base}))

	bobs, err := db.ListProjectsFor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Equal(t, "p2", bobs[0].ID)
	assert.Equal(t, []string{"bob", "alice"}, bobs[1].MemberIDs)

	alices, err := db.ListProjectsFor(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alices, 1)

	require.NoError(t, db.DeleteProject(ctx, "p1"))
	assert.ErrorIs(t, db.DeleteProject(ctx, "p1"), model.ErrNotFound)

	tasks, err := db.ReadTasks(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	entries, err := db.ReadActivities(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestActivities_AppendReadAndWatermark(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, db.AppendActivity(ctx, "p1", model.Activity{
			Kind: model.ActivityMoved, Text: text, ActorName: "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := db.ReadActivities(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Text)
	assert.Equal(t, "p1", entries[0].ProjectID)
	assert.Less(t, entries[0].ID, entries[1].ID)

	mark, err := db.GetWatermark(ctx, "bob", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, mark)

	require.NoError(t, db.SetWatermark(ctx, "bob", "p1", 2))
	require.NoError(t, db.SetWatermark(ctx, "bob", "p1", 3))
	mark, err = db.GetWatermark(ctx, "bob", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, mark)
}

func TestSubscriptions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedProject(t, db)

	var (
		taskSnaps    [][]model.Task
		projectSnaps []model.Project
		activityLens []int
	)
	cancelTasks := db.SubscribeTasks("p1", func(ts []model.Task) { taskSnaps = append(taskSnaps, ts) })
	cancelProject := db.SubscribeProject("p1", func(p model.Project) { projectSnaps = append(projectSnaps, p) })
	cancelActivities := db.SubscribeActivities("p1", func(es []model.Activity) { activityLens = append(activityLens, len(es)) })
	defer cancelProject()
	defer cancelActivities()

	task, err := db.ReadTask(ctx, "p1", "t1")
	require.NoError(t, err)
	task.Status = model.StatusInProgress
	require.NoError(t, db.WriteTask(ctx, "p1", task))
	require.NoError(t, db.AppendActivity(ctx, "p1", model.Activity{Kind: model.ActivityMoved, Text: "m", CreatedAt: base}))

	cancelTasks()
	cancelTasks()
	task.Version++
	task.Status = model.StatusReview
	require.NoError(t, db.WriteTask(ctx, "p1", task))

	require.Len(t, taskSnaps, 1)
	assert.Equal(t, model.StatusInProgress, taskSnaps[0][1].Status)
	assert.Empty(t, projectSnaps)
	assert.Equal(t, []int{1}, activityLens)
	db.hub.mu.Lock()
	_, subscribed := db.hub.subs[tasksTopic("p1")]
	db.hub.mu.Unlock()
	assert.False(t, subscribed)
}

func TestUsersAndSessions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := model.User{
		ID: "alice", DisplayName: "Alice", Email: "Alice@Example.com", PasswordHash: "hash",
		Privacy: model.PrivacySettings{ShowEmail: true}, CreatedAt: base,
	}
	require.NoError(t, db.CreateUser(ctx, u))
	dup := u
	dup.ID = "other"
	assert.ErrorIs(t, db.CreateUser(ctx, dup), ErrEmailTaken)

	got, err := db.GetUserByEmail(ctx, " alice@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Nil(t, got.LastSeen)

	privacy, err := db.GetPrivacy(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.PrivacySettings{ShowEmail: true}, privacy)
	privacy, err = db.GetPrivacy(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, model.PrivacySettings{}, privacy)

	seen := base.Add(time.Minute)
	require.NoError(t, db.TouchLastSeen(ctx, "alice", seen))
	got, err = db.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.LastSeen)
	assert.Equal(t, seen, *got.LastSeen)

	users, err := db.GetUsers(ctx, []string{"ghost", "alice"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	require.NoError(t, db.CreateSession(ctx, model.Session{Token: "tok", UserID: "alice", ExpiresAt: base.Add(time.Hour), CreatedAt: base}))
	require.NoError(t, db.CreateSession(ctx, model.Session{Token: "old", UserID: "alice", ExpiresAt: base.Add(-time.Hour), CreatedAt: base}))
	s, err := db.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID)
	assert.Equal(t, base.Add(time.Hour), s.ExpiresAt)

	n, err := db.DeleteExpiredSessions(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.DeleteSession(ctx, "tok"))
	_, err = db.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFriendships(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddFriendship(ctx, "alice", "bob", base))
	require.NoError(t, db.AddFriendship(ctx, "bob", "alice", base))

	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ok, err := db.AreFriends(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	require.NoError(t, db.RemoveFriendship(ctx, "bob", "alice"))
	ok, err := db.AreFriends(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, db.RemoveFriendship(ctx, "alice", "bob"), model.ErrNotFound)
}

func TestTasks_ReadKeepsRoadmapOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	clock := &testutil.MockClock{NowTime: base}
	engine := workflow.NewEngine(db, clock)

	owner := model.Actor{ID: "alice", DisplayName: "alice"}
	var lines []string
	for i := 1; i <= 8; i++ {
		lines = append(lines, fmt.Sprintf("- step %02d of the engagement", i))
	}
	project, created, err := engine.CreateProject(ctx, owner, "Op Ordering", strings.Join(lines, "\n"), nil)
	require.NoError(t, err)
	require.Len(t, created, 8)

	want := make([]string, 0, len(created))
	for _, task := range created {
		assert.Equal(t, base, task.CreatedAt)
		want = append(want, task.Title)
	}

	tasks, err := db.ReadTasks(ctx, project.ID)
	require.NoError(t, err)
	got := make([]string, 0, len(tasks))
	for _, task := range tasks {
		got = append(got, task.Title)
	}
	assert.Equal(t, want, got)

	board, err := engine.Board(ctx, project.ID, owner)
	require.NoError(t, err)
	got = got[:0]
	for _, task := range board.Tasks {
		got = append(got, task.Title)
	}
	assert.Equal(t, want, got)
}
