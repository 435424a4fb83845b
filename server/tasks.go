package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/labstack/echo/v4"
)

type taskView struct {
	model.Task
	Overdue bool `json:"overdue"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

type updateTaskRequest struct {
	Notes        *string       `json:"notes"`
	DueDate      *string       `json:"due_date"`
	ClearDueDate bool          `json:"clear_due_date"`
	Links        *[]model.Link `json:"links"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

// parseDueDate accepts RFC 3339 timestamps or plain dates
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// handleListTasks returns the board's tasks, optionally only the caller's and filtered by q
func (s *Server) handleListTasks(c echo.Context) error {
	viewer := s.actor(c)
	board, err := s.engine.Board(c.Request().Context(), c.Param("id"), viewer)
	if err != nil {
		return storeError(c, err)
	}

	mine := c.QueryParam("mine") == "true"
	tasks := workflow.FilterTasks(board.Tasks, viewer.ID, mine, c.QueryParam("q"))
	now := s.clock.Now()
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskView{Task: t, Overdue: t.IsOverdue(now)})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleMoveTask(c echo.Context) error {
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	dir, err := workflow.ParseDirection(req.Direction)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	out, err := s.engine.Move(c.Request().Context(), c.Param("id"), c.Param("task"), dir, s.actor(c))
	return outcomeJSON(c, out, err)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	upd := workflow.DetailsUpdate{
		Notes:        req.Notes,
		ClearDueDate: req.ClearDueDate,
		Links:        req.Links,
	}
	if req.DueDate != nil && !req.ClearDueDate {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "due_date must be RFC 3339 or YYYY-MM-DD")
		}
		upd.DueDate = &due
	}

	out, err := s.engine.UpdateDetails(c.Request().Context(), c.Param("id"), c.Param("task"), s.actor(c), upd)
	return outcomeJSON(c, out, err)
}

func (s *Server) handleAddTag(c echo.Context) error {
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	out, err := s.engine.AddTag(c.Request().Context(), c.Param("id"), c.Param("task"), s.actor(c), req.Tag)
	return outcomeJSON(c, out, err)
}

func (s *Server) handleAddLink(c echo.Context) error {
	var link model.Link
	if err := c.Bind(&link); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	out, err := s.engine.AddLink(c.Request().Context(), c.Param("id"), c.Param("task"), s.actor(c), link)
	return outcomeJSON(c, out, err)
}

func (s *Server) handleRemoveLink(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "index must be an integer")
	}
	out, err := s.engine.RemoveLink(c.Request().Context(), c.Param("id"), c.Param("task"), s.actor(c), index)
	return outcomeJSON(c, out, err)
}
