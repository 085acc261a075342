package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cohortlabs/cohort-hub/internal/store"
)

// schema is applied on open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'member',
	is_guest      BOOLEAN NOT NULL DEFAULT 0,
	session_id    TEXT,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user
	ON notifications(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notification_prefs (
	user_id TEXT NOT NULL,
	type    TEXT NOT NULL,
	enabled BOOLEAN NOT NULL,
	PRIMARY KEY (user_id, type)
);

CREATE TABLE IF NOT EXISTS scheduled_streams (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	cohort_id   TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	starts_at   DATETIME NOT NULL,
	created_by  TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scheduled_cohort
	ON scheduled_streams(cohort_id, starts_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for tests.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore ====

// CreateUser creates a member with a hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, displayName, passwordHash string) (*store.User, error) {
	if displayName == "" {
		displayName = username
	}
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, username, display_name, password_hash, role, is_guest, created_at)
		VALUES (?, ?, ?, ?, 'member', 0, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, username, displayName, passwordHash, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// CreateGuestUser creates a temporary guest tracked by session ID.
func (s *SQLiteStore) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	id := uuid.NewString()
	guestName := "guest_" + sessionID[:8]
	query := `
		INSERT INTO users (id, username, display_name, password_hash, role, is_guest, session_id, created_at)
		VALUES (?, ?, ?, '', 'member', 1, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, guestName, guestName, sessionID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, `WHERE username = ?`, username)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, role, is_guest, COALESCE(session_id, ''), created_at
		FROM users ` + where
	var u store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.IsGuest, &u.SessionID, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// UpdateUserRole changes a user's role.
func (s *SQLiteStore) UpdateUserRole(ctx context.Context, id, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ==== NotificationStore ====

// AppendNotification persists a notification and returns its ID.
func (s *SQLiteStore) AppendNotification(ctx context.Context, n *store.Notification) (int64, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query, n.UserID, n.Type, n.Title, n.Message, n.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]store.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, user_id, type, title, message, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	out := make([]store.Notification, 0)
	for rows.Next() {
		var n store.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ClearNotifications empties the user's notification list.
func (s *SQLiteStore) ClearNotifications(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// GetNotificationPreferences returns the user's type -> enabled map. Types
// absent from the map are enabled by default.
func (s *SQLiteStore) GetNotificationPreferences(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, enabled FROM notification_prefs WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]bool)
	for rows.Next() {
		var t string
		var enabled bool
		if err := rows.Scan(&t, &enabled); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs[t] = enabled
	}
	return prefs, rows.Err()
}

// SetNotificationPreference flips one notification type for a user.
func (s *SQLiteStore) SetNotificationPreference(ctx context.Context, userID, notifType string, enabled bool) error {
	query := `
		INSERT INTO notification_prefs (user_id, type, enabled)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, type) DO UPDATE SET enabled = excluded.enabled
	`
	if _, err := s.db.ExecContext(ctx, query, userID, notifType, enabled); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// ==== ScheduleStore ====

// CreateScheduledStream persists a schedule record and returns it with ID.
func (s *SQLiteStore) CreateScheduledStream(ctx context.Context, sched *store.ScheduledStream) (*store.ScheduledStream, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO scheduled_streams (cohort_id, title, description, starts_at, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query, sched.CohortID, sched.Title, sched.Description, sched.StartsAt.UTC(), sched.CreatedBy, now)
	if err != nil {
		return nil, fmt.Errorf("insert scheduled stream: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	out := *sched
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// ListScheduledStreams returns a cohort's schedule, soonest first.
func (s *SQLiteStore) ListScheduledStreams(ctx context.Context, cohortID string) ([]store.ScheduledStream, error) {
	query := `
		SELECT id, cohort_id, title, description, starts_at, created_by, created_at
		FROM scheduled_streams
		WHERE cohort_id = ?
		ORDER BY starts_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cohortID)
	if err != nil {
		return nil, fmt.Errorf("select scheduled streams: %w", err)
	}
	defer rows.Close()

	out := make([]store.ScheduledStream, 0)
	for rows.Next() {
		var sc store.ScheduledStream
		if err := rows.Scan(&sc.ID, &sc.CohortID, &sc.Title, &sc.Description, &sc.StartsAt, &sc.CreatedBy, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scheduled stream: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
