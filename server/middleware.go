package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/labstack/echo/v4"
)

// presenceInterval throttles last_seen writes to one per user per interval
const presenceInterval = time.Minute

type actorKey struct{}

// withActor stores the authenticated actor on the request context
func withActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// errNoActor is returned for requests that did not pass authMiddleware
var errNoActor = errors.New("no authenticated actor")

// CurrentActor implements model.IdentityProvider for requests that passed authMiddleware
func (s *Server) CurrentActor(ctx context.Context) (model.Actor, error) {
	a, ok := ctx.Value(actorKey{}).(model.Actor)
	if !ok || a.ID == "" {
		return model.Actor{}, errNoActor
	}
	return a, nil
}

var _ model.IdentityProvider = (*Server)(nil)

// authMiddleware checks for valid session token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization required"})
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
		}

		ctx := c.Request().Context()
		session, err := s.db.GetSession(ctx, token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		now := s.clock.Now()
		if session.IsExpired(now) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token expired"})
		}

		user, err := s.db.GetUser(ctx, session.UserID)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		// heartbeat for presence
		if user.LastSeen == nil || now.Sub(*user.LastSeen) >= presenceInterval {
			if err := s.db.TouchLastSeen(ctx, user.ID, now); err != nil {
				logger.Warn("Presence update failed", logger.F("user", user.ID), logger.Err(err))
			}
		}

		c.Set("user_id", user.ID)
		c.Set("token", token)
		c.SetRequest(c.Request().WithContext(withActor(ctx, user.Actor())))
		return next(c)
	}
}

// actor returns the authenticated caller of a protected handler
func (s *Server) actor(c echo.Context) model.Actor {
	a, _ := s.CurrentActor(c.Request().Context())
	return a
}

// requestLogger logs each request through the application logger
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		res := c.Response()
		fields := []logger.Field{
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start).String()),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
		}
		if res.Status >= http.StatusInternalServerError {
			logger.Error("HTTP Response", fields...)
		} else {
			logger.Info("HTTP Response", fields...)
		}
		return nil
	}
}
