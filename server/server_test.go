package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/existflow/secureplan/internal/db"
	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t     *testing.T
	srv   *Server
	store *db.DB
	clock *testutil.MockClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	clock := &testutil.MockClock{NowTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	srv := New(store, Options{Clock: clock, SessionTTL: time.Hour})
	t.Cleanup(func() { srv.Close() })
	return &harness{t: t, srv: srv, store: store, clock: clock}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type account struct {
	ID    string
	Token string
}

func (h *harness) register(name string) account {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"display_name": name,
		"email":        name + "@example.com",
		"password":     "correct horse",
	})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[authResponse](h.t, rec)
	return account{ID: resp.UserID, Token: resp.Token}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")

	rec := h.do(http.MethodGet, "/api/v1/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "alice", me["display_name"])
	assert.NotContains(t, me, "password_hash")

	rec = h.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"display_name": "again", "email": "ALICE@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"display_name": "short", "email": "short@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "alice@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[authResponse](t, rec)

	rec = h.do(http.MethodPost, "/api/v1/logout", alice.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/me", alice.Token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/me", second.Token, nil).Code)
}

func TestAuthMiddleware(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/projects", "", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("Authorization", alice.Token)
	rec := httptest.NewRecorder()
	h.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/projects", alice.Token, nil).Code)
}

func TestCurrentActor(t *testing.T) {
	h := newHarness(t)

	_, err := h.srv.CurrentActor(context.Background())
	assert.Error(t, err)

	a, err := h.srv.CurrentActor(withActor(context.Background(), model.Actor{ID: "u1", DisplayName: "U"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", a.ID)
}

type createdProject struct {
	Project model.Project `json:"project"`
	Tasks   []model.Task  `json:"tasks"`
}

func (h *harness) createProject(owner account, team ...string) createdProject {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/projects", owner.Token, map[string]any{
		"name":    "Op Nightfall",
		"roadmap": "- Port scan @alice (high) #recon\n- Report writing (low)",
		"team":    team,
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[createdProject](h.t, rec)
}

func TestProjectLifecycle(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")

	created := h.createProject(alice, bob.ID)
	pid := created.Project.ID
	require.Len(t, created.Tasks, 2)
	scan, report := created.Tasks[0], created.Tasks[1]
	assert.Equal(t, alice.ID, scan.AssigneeID)
	assert.Equal(t, model.PriorityHigh, scan.Priority)
	assert.Equal(t, []string{"recon"}, scan.Tags)
	// no mention: the first roster entry, bob, gets it
	assert.Equal(t, bob.ID, report.AssigneeID)
	assert.Equal(t, []string{bob.ID, alice.ID}, created.Project.MemberIDs)

	movePath := func(taskID string) string {
		return "/api/v1/projects/" + pid + "/tasks/" + taskID + "/move"
	}

	rec := h.do(http.MethodPost, movePath(scan.ID), bob.Token, map[string]string{"direction": "next"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, decode[outcomeResponse](t, rec).Applied)

	rec = h.do(http.MethodPost, movePath(scan.ID), alice.Token, map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, movePath(scan.ID), alice.Token, map[string]string{"direction": "prev"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out_of_range", decode[outcomeResponse](t, rec).Outcome)

	for i := 0; i < 3; i++ {
		rec = h.do(http.MethodPost, movePath(scan.ID), alice.Token, map[string]string{"direction": "next"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[outcomeResponse](t, rec).Applied)
		rec = h.do(http.MethodPost, movePath(report.ID), bob.Token, map[string]string{"direction": "NEXT"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = h.do(http.MethodGet, "/api/v1/projects/"+pid, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[map[string]any](t, rec)
	assert.EqualValues(t, 100, board["progress"])
	assert.Equal(t, true, board["can_complete"])
	assert.EqualValues(t, 6, board["unread"])
	assert.Len(t, board["members"], 2)

	rec = h.do(http.MethodPost, "/api/v1/projects/"+pid+"/complete", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[outcomeResponse](t, rec).Applied)

	rec = h.do(http.MethodPost, "/api/v1/projects/"+pid+"/complete", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "noop", decode[outcomeResponse](t, rec).Outcome)

	rec = h.do(http.MethodGet, "/api/v1/projects/"+pid+"/activities", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Activities []model.Activity `json:"activities"`
		Unread     int              `json:"unread"`
	}](t, rec)
	require.Len(t, feed.Activities, 7)
	assert.Equal(t, "PROJECT COMPLETED SUCCESSFULLY", feed.Activities[0].Text)
	assert.Equal(t, 7, feed.Unread)

	rec = h.do(http.MethodPost, "/api/v1/projects/"+pid+"/activities/read", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, decode[map[string]int](t, rec)["watermark"])

	rec = h.do(http.MethodGet, "/api/v1/projects?status=completed", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]projectSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Unread)
	assert.Equal(t, 100, list[0].Progress)

	rec = h.do(http.MethodGet, "/api/v1/projects", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]projectSummary](t, rec))

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/v1/projects/"+pid, bob.Token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/v1/projects/"+pid, alice.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/projects/"+pid, alice.Token, nil).Code)
}

func TestProjectValidationAndAccess(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	eve := h.register("eve")

	rec := h.do(http.MethodPost, "/api/v1/projects", alice.Token, map[string]any{"name": "Op", "roadmap": "// nothing to do here"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no tasks")

	rec = h.do(http.MethodPost, "/api/v1/projects", alice.Token, map[string]any{
		"name": "Op", "roadmap": "- Something long enough", "team": []string{"ghost"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/projects?status=weird", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	created := h.createProject(alice)
	pid := created.Project.ID
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/projects/"+pid, eve.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/projects/"+pid+"/activities", eve.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/projects/"+pid+"/tasks", eve.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/projects/nope", alice.Token, nil).Code)
}

func TestTemplatesAndPreview(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")

	rec := h.do(http.MethodGet, "/api/v1/templates", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pentest_web")

	rec = h.do(http.MethodPost, "/api/v1/projects/preview", alice.Token, map[string]any{
		"name": "Web audit", "template": "pentest_web",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[struct {
		Tasks []model.Task `json:"tasks"`
		Count int          `json:"count"`
	}](t, rec)
	assert.Equal(t, 6, preview.Count)
	assert.Equal(t, model.PriorityHigh, preview.Tasks[0].Priority)
	assert.Equal(t, alice.ID, preview.Tasks[0].AssigneeID)

	rec = h.do(http.MethodPost, "/api/v1/projects/preview", alice.Token, map[string]any{
		"name": "x", "template": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	projects, err := h.store.ListProjectsFor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestTaskDetails(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	created := h.createProject(alice)
	pid, tid := created.Project.ID, created.Tasks[0].ID
	base := "/api/v1/projects/" + pid + "/tasks/" + tid

	rec := h.do(http.MethodPatch, base, alice.Token, map[string]any{"notes": "22,80,443 open", "due_date": "2024-04-30"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[outcomeResponse](t, rec).Applied)

	rec = h.do(http.MethodPatch, base, alice.Token, map[string]any{"due_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPatch, base, alice.Token, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "noop", decode[outcomeResponse](t, rec).Outcome)

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/tags", alice.Token, map[string]string{"tag": "#nmap"}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, base+"/links", alice.Token, map[string]string{"url": "https://a.example"}).Code)

	rec = h.do(http.MethodDelete, base+"/links/5", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out_of_range", decode[outcomeResponse](t, rec).Outcome)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, base+"/links/x", alice.Token, nil).Code)

	rec = h.do(http.MethodGet, "/api/v1/projects/"+pid+"/tasks?mine=true&q=nmap", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]taskView](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, "22,80,443 open", tasks[0].Notes)
	assert.Equal(t, []string{"recon", "nmap"}, tasks[0].Tags)
	assert.Equal(t, []model.Link{{URL: "https://a.example", Name: "Link"}}, tasks[0].Links)
	assert.True(t, tasks[0].Overdue)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, base+"/links/0", alice.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/v1/projects/"+pid+"/tasks/nope/tags", alice.Token, map[string]string{"tag": "x"}).Code)
}

func TestProfileAndUnfriend(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	ctx := context.Background()
	h.createProject(alice, bob.ID)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/me", bob.Token, nil).Code)

	_, err := h.store.ExecContext(ctx, `UPDATE users SET show_history = 1 WHERE id = ?`, bob.ID)
	require.NoError(t, err)
	require.NoError(t, h.store.AddFriendship(ctx, alice.ID, bob.ID, h.clock.Now()))

	rec := h.do(http.MethodGet, "/api/v1/users/"+bob.ID+"/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, true, profile["is_friend"])
	assert.NotContains(t, profile, "email")
	assert.Len(t, profile["mutual_projects"], 1)
	assert.Equal(t, true, profile["online"])

	rec = h.do(http.MethodGet, "/api/v1/users/"+alice.ID+"/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", decode[map[string]any](t, rec)["email"])

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/friends/"+bob.ID, alice.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/v1/friends/"+bob.ID, alice.Token, nil).Code)

	rec = h.do(http.MethodGet, "/api/v1/users/"+bob.ID+"/profile", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile = decode[map[string]any](t, rec)
	assert.Equal(t, false, profile["is_friend"])
	assert.Empty(t, profile["mutual_projects"])

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/users/nobody/profile", alice.Token, nil).Code)
}

func TestProfileFollowsProjectChanges(t *testing.T) {
	h := newHarness(t)
	alice := h.register("alice")
	bob := h.register("bob")
	ctx := context.Background()
	first := h.createProject(alice, bob.ID)

	_, err := h.store.ExecContext(ctx, `UPDATE users SET show_history = 1 WHERE id = ?`, bob.ID)
	require.NoError(t, err)
	require.NoError(t, h.store.AddFriendship(ctx, alice.ID, bob.ID, h.clock.Now()))

	mutual := func() []any {
		rec := h.do(http.MethodGet, "/api/v1/users/"+bob.ID+"/profile", alice.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		projects, _ := decode[map[string]any](t, rec)["mutual_projects"].([]any)
		return projects
	}
	require.Len(t, mutual(), 1)

	rec := h.do(http.MethodDelete, "/api/v1/projects/"+first.Project.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, mutual())

	second := h.createProject(alice, bob.ID)
	projects := mutual()
	require.Len(t, projects, 1)
	assert.Equal(t, second.Project.ID, projects[0].(map[string]any)["id"])
}
