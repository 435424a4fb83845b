package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/roadmap"
	"github.com/existflow/secureplan/internal/visibility"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/labstack/echo/v4"
)

type projectRequest struct {
	Name     string   `json:"name"`
	Roadmap  string   `json:"roadmap"`
	Template string   `json:"template,omitempty"`
	Team     []string `json:"team"`
}

type projectSummary struct {
	model.Project
	Progress int `json:"progress"`
	Unread   int `json:"unread"`
}

type memberView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

type boardResponse struct {
	workflow.Board
	Members []memberView `json:"members"`
	Unread  int          `json:"unread"`
}

var errUnknownMember = errors.New("unknown team member")

// team resolves the request's team ids into roster entries
func (s *Server) team(ctx context.Context, ids []string) ([]model.TeamMember, error) {
	users, err := s.db.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(users))
	team := make([]model.TeamMember, 0, len(users))
	for _, u := range users {
		known[u.ID] = true
		team = append(team, u.Member())
	}
	for _, id := range ids {
		if !known[id] {
			return nil, errUnknownMember
		}
	}
	return team, nil
}

// bindProject reads a projectRequest, filling the roadmap from a template when asked
func bindProject(c echo.Context) (projectRequest, error) {
	var req projectRequest
	if err := c.Bind(&req); err != nil {
		return req, errors.New("invalid request")
	}
	if req.Template != "" && strings.TrimSpace(req.Roadmap) == "" {
		tpl, ok := roadmap.LookupTemplate(req.Template)
		if !ok {
			return req, errors.New("unknown template")
		}
		req.Roadmap = tpl.Roadmap
	}
	return req, nil
}

func (s *Server) handleTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, roadmap.Templates())
}

// handlePreview parses a roadmap without storing anything
func (s *Server) handlePreview(c echo.Context) error {
	req, err := bindProject(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	team, err := s.team(c.Request().Context(), req.Team)
	if errors.Is(err, errUnknownMember) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return storeError(c, err)
	}

	roster := workflow.Roster(s.actor(c), team)
	tasks, err := roadmap.ValidateSubmission(req.Name, req.Roadmap, roster, s.clock.Now())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleCreateProject(c echo.Context) error {
	req, err := bindProject(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	team, err := s.team(ctx, req.Team)
	if errors.Is(err, errUnknownMember) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return storeError(c, err)
	}

	project, tasks, err := s.engine.CreateProject(ctx, s.actor(c), req.Name, req.Roadmap, team)
	if err != nil {
		return storeError(c, err)
	}
	s.profiles.ProjectChanged(project)
	return c.JSON(http.StatusCreated, map[string]any{"project": project, "tasks": tasks})
}

func (s *Server) handleListProjects(c echo.Context) error {
	filter := workflow.ProjectFilter{
		Status: workflow.StatusFilter(c.QueryParam("status")),
		Search: c.QueryParam("q"),
	}
	switch filter.Status {
	case "", workflow.FilterActive, workflow.FilterCompleted, workflow.FilterAll:
	default:
		return errorJSON(c, http.StatusBadRequest, "status must be active, completed or all")
	}

	ctx := c.Request().Context()
	viewer := s.actor(c)
	projects, err := s.engine.ListProjects(ctx, viewer, filter)
	if err != nil {
		return storeError(c, err)
	}

	out := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		tasks, err := s.db.ReadTasks(ctx, p.ID)
		if err != nil {
			return storeError(c, err)
		}
		unread, err := s.tracker.Unread(ctx, viewer.ID, p.ID)
		if err != nil {
			return storeError(c, err)
		}
		out = append(out, projectSummary{Project: p, Progress: workflow.Progress(tasks), Unread: unread})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetProject(c echo.Context) error {
	ctx := c.Request().Context()
	viewer := s.actor(c)
	board, err := s.engine.Board(ctx, c.Param("id"), viewer)
	if err != nil {
		return storeError(c, err)
	}

	users, err := s.db.GetUsers(ctx, board.Project.MemberIDs)
	if err != nil {
		return storeError(c, err)
	}
	now := s.clock.Now()
	members := make([]memberView, 0, len(users))
	for _, u := range users {
		members = append(members, memberView{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			Online:      visibility.Online(u.LastSeen, now),
		})
	}

	unread, err := s.tracker.Unread(ctx, viewer.ID, board.Project.ID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, boardResponse{Board: board, Members: members, Unread: unread})
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	ctx := c.Request().Context()
	// members are gone once the delete lands
	project, _ := s.db.ReadProject(ctx, c.Param("id"))
	out, err := s.engine.DeleteProject(ctx, c.Param("id"), s.actor(c))
	if out.Applied() {
		s.profiles.ProjectChanged(project)
	}
	return outcomeJSON(c, out, err)
}

func (s *Server) handleCompleteProject(c echo.Context) error {
	ctx := c.Request().Context()
	out, err := s.engine.Complete(ctx, c.Param("id"), s.actor(c))
	if out.Applied() {
		if project, rerr := s.db.ReadProject(ctx, c.Param("id")); rerr == nil {
			s.profiles.ProjectChanged(project)
		}
	}
	return outcomeJSON(c, out, err)
}

// member loads a project the caller belongs to
func (s *Server) member(c echo.Context) (model.Project, error) {
	project, err := s.db.ReadProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return model.Project{}, err
	}
	if !project.HasMember(s.actor(c).ID) {
		return model.Project{}, model.ErrNotMember
	}
	return project, nil
}

func (s *Server) handleListActivities(c echo.Context) error {
	project, err := s.member(c)
	if err != nil {
		return storeError(c, err)
	}
	ctx := c.Request().Context()
	feed, err := s.tracker.Feed(ctx, project.ID)
	if err != nil {
		return storeError(c, err)
	}
	unread, err := s.tracker.Unread(ctx, s.actor(c).ID, project.ID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"activities": feed, "unread": unread})
}

func (s *Server) handleMarkRead(c echo.Context) error {
	project, err := s.member(c)
	if err != nil {
		return storeError(c, err)
	}
	mark, err := s.tracker.MarkRead(c.Request().Context(), s.actor(c).ID, project.ID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"watermark": mark, "unread": 0})
}
