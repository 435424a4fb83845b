package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/secureplan/internal/model"
)

// ErrEmailTaken is returned when registering an email that already exists
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, display_name, email, password_hash, show_email, show_history, last_seen, created_at`

// CreateUser inserts a new account. Emails are stored lower-cased.
func (db *DB) CreateUser(ctx context.Context, u model.User) error {
	_, err := db.exec(ctx, db.DB, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.DisplayName, strings.ToLower(u.Email), u.PasswordHash,
		boolInt(u.Privacy.ShowEmail), boolInt(u.Privacy.ShowHistory),
		formatTimePtr(u.LastSeen), formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func scanUser(s scanner) (model.User, error) {
	var (
		u                      model.User
		showEmail, showHistory int
		lastSeen               sql.NullString
		created                string
	)
	if err := s.Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash,
		&showEmail, &showHistory, &lastSeen, &created); err != nil {
		return model.User{}, err
	}
	u.Privacy = model.PrivacySettings{ShowEmail: showEmail != 0, ShowHistory: showHistory != 0}

	var err error
	if u.LastSeen, err = parseTimePtr(lastSeen); err != nil {
		return model.User{}, err
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (model.User, error) {
	u, err := scanUser(db.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// GetUser looks a user up by id
func (db *DB) GetUser(ctx context.Context, id string) (model.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

// GetUserByEmail looks a user up by email, case-insensitively
func (db *DB) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return db.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetUsers returns the users with the given ids in the same order, skipping unknown ids
func (db *DB) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		u, err := db.GetUser(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// TouchLastSeen records a presence heartbeat
func (db *DB) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	if _, err := db.exec(ctx, db.DB, `UPDATE users SET last_seen = ? WHERE id = ?`, formatTime(at), userID); err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// GetPrivacy implements model.PrivacyStore. Unknown users get the zero settings.
func (db *DB) GetPrivacy(ctx context.Context, userID string) (model.PrivacySettings, error) {
	var showEmail, showHistory int
	err := db.queryRow(ctx, `SELECT show_email, show_history FROM users WHERE id = ?`, userID).
		Scan(&showEmail, &showHistory)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PrivacySettings{}, nil
	}
	if err != nil {
		return model.PrivacySettings{}, fmt.Errorf("query privacy: %w", err)
	}
	return model.PrivacySettings{ShowEmail: showEmail != 0, ShowHistory: showHistory != 0}, nil
}

// CreateSession stores a login session
func (db *DB) CreateSession(ctx context.Context, s model.Session) error {
	_, err := db.exec(ctx, db.DB, `
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, formatTime(s.ExpiresAt), formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession looks a session up by token
func (db *DB) GetSession(ctx context.Context, token string) (model.Session, error) {
	var (
		s                model.Session
		expires, created string
	)
	err := db.queryRow(ctx, `
		SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, model.ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return model.Session{}, err
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// DeleteSession removes a session; unknown tokens are ignored
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.exec(ctx, db.DB, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.exec(ctx, db.DB, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// AddFriendship records a mutual friendship in both directions
func (db *DB) AddFriendship(ctx context.Context, a, b string, at time.Time) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			if _, err := db.exec(ctx, tx, `
				INSERT INTO friendships (user_id, friend_id, created_at) VALUES (?, ?, ?)
				ON CONFLICT (user_id, friend_id) DO NOTHING`,
				pair[0], pair[1], formatTime(at)); err != nil {
				return fmt.Errorf("insert friendship: %w", err)
			}
		}
		return nil
	})
}

// RemoveFriendship deletes both directions. Removing a missing friendship yields model.ErrNotFound.
func (db *DB) RemoveFriendship(ctx context.Context, a, b string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := db.exec(ctx, tx, `
			DELETE FROM friendships
			WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
			a, b, b, a)
		if err != nil {
			return fmt.Errorf("delete friendship: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrNotFound
		}
		return nil
	})
}

// AreFriends implements model.FriendStore
func (db *DB) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var n int
	err := db.queryRow(ctx, `
		SELECT COUNT(*) FROM friendships WHERE user_id = ? AND friend_id = ?`, userID, otherID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query friendship: %w", err)
	}
	return n > 0, nil
}
