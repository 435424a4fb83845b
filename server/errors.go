package server

import (
	"errors"
	"net/http"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/existflow/secureplan/internal/roadmap"
	"github.com/existflow/secureplan/internal/workflow"
	"github.com/labstack/echo/v4"
)

// errorJSON writes {"error": msg} with the given status
func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

// storeError maps engine and store errors onto HTTP responses
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, roadmap.ErrValidation), errors.Is(err, workflow.ErrInvalidDirection):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotMember):
		return errorJSON(c, http.StatusForbidden, "not a project member")
	case errors.Is(err, model.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrConflict):
		return errorJSON(c, http.StatusConflict, "changed concurrently, reload and retry")
	default:
		logger.Error("Request failed",
			logger.F("method", c.Request().Method),
			logger.F("path", c.Path()),
			logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}
}

type outcomeResponse struct {
	Applied bool   `json:"applied"`
	Outcome string `json:"outcome"`
}

// outcomeJSON reports a mutation outcome. Denied is 403; everything else is 200.
func outcomeJSON(c echo.Context, out workflow.Outcome, err error) error {
	if err != nil && !out.Applied() {
		return storeError(c, err)
	}
	if err != nil {
		// the change is stored but its activity entry is not
		logger.Warn("Mutation applied without activity", logger.F("path", c.Path()), logger.Err(err))
	}
	resp := outcomeResponse{Applied: out.Applied(), Outcome: out.String()}
	if out == workflow.OutcomeDenied {
		return c.JSON(http.StatusForbidden, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
