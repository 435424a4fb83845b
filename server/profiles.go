package server

import (
	"net/http"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/labstack/echo/v4"
)

// handleProfile shows another user as the caller is allowed to see them
func (s *Server) handleProfile(c echo.Context) error {
	ctx := c.Request().Context()
	subject, err := s.db.GetUser(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	profile, err := s.profiles.Profile(ctx, s.actor(c).ID, subject)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// handleUnfriend removes a friendship and drops cached profile views between the pair
func (s *Server) handleUnfriend(c echo.Context) error {
	viewer := s.actor(c)
	other := c.Param("id")
	if err := s.db.RemoveFriendship(c.Request().Context(), viewer.ID, other); err != nil {
		return storeError(c, err)
	}
	s.profiles.Unfriended(viewer.ID, other)

	logger.Info("Friendship removed", logger.F("user", viewer.ID), logger.F("friend", other))
	return c.NoContent(http.StatusNoContent)
}
