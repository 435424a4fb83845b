package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/existflow/secureplan/internal/db"
	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/internal/model"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength    = 8
	maxDisplayNameLength = 50
)

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	UserID    string `json:"user_id"`
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Email = strings.TrimSpace(req.Email)
	if req.DisplayName == "" || req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "display_name, email, and password required")
	}
	if utf8.RuneCountInString(req.DisplayName) > maxDisplayNameLength {
		return errorJSON(c, http.StatusBadRequest, "display_name too long")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < minPasswordLength {
		return errorJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Password hashing failed", logger.Err(err))
		return errorJSON(c, http.StatusInternalServerError, "internal error")
	}

	user := model.User{
		ID:           uuid.NewString(),
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.db.CreateUser(c.Request().Context(), user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return errorJSON(c, http.StatusConflict, "email already exists")
		}
		return storeError(c, err)
	}

	resp, err := s.createSession(c, user.ID)
	if err != nil {
		return storeError(c, err)
	}

	logger.Info("User registered", logger.F("user", user.ID))
	return c.JSON(http.StatusOK, resp)
}

// handleLogin handles user login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	user, err := s.db.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	resp, err := s.createSession(c, user.ID)
	if err != nil {
		return storeError(c, err)
	}

	logger.Info("User logged in", logger.F("user", user.ID))
	return c.JSON(http.StatusOK, resp)
}

// handleLogout ends the current session
func (s *Server) handleLogout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	if err := s.db.DeleteSession(c.Request().Context(), token); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns current user info
func (s *Server) handleMe(c echo.Context) error {
	user, err := s.db.GetUser(c.Request().Context(), s.actor(c).ID)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// createSession creates a new session for a user
func (s *Server) createSession(c echo.Context, userID string) (authResponse, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return authResponse{}, err
	}

	now := s.clock.Now()
	session := model.Session{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.db.CreateSession(c.Request().Context(), session); err != nil {
		return authResponse{}, err
	}

	return authResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		UserID:    userID,
	}, nil
}
