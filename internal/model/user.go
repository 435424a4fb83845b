package model

import "time"

// PrivacySettings controls what friends may see on a profile.
// The zero value hides everything.
type PrivacySettings struct {
	ShowEmail   bool `json:"show_email"`
	ShowHistory bool `json:"show_history"`
}

// User represents an account
type User struct {
	ID           string          `json:"id"`
	DisplayName  string          `json:"display_name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Privacy      PrivacySettings `json:"privacy"`
	LastSeen     *time.Time      `json:"last_seen,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Actor is the identity performing an operation
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Member returns the roster entry for the user.
func (u *User) Member() TeamMember {
	return TeamMember{ID: u.ID, DisplayName: u.DisplayName}
}

// Actor returns the user as an acting identity.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, DisplayName: u.DisplayName}
}

// Session represents an active login session
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
