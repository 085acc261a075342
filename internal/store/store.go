package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// User is a participant record. Roles are persisted here and carried into
// tokens by the auth service.
type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	Role         string
	IsGuest      bool
	SessionID    string
	CreatedAt    time.Time
}

// Notification is one durable per-user notification.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ScheduledStream is a stream scheduling record for a cohort. The hub treats
// scheduled streams as inert; only the record and its broadcast matter here.
type ScheduledStream struct {
	ID          int64     `json:"id"`
	CohortID    string    `json:"cohortId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserStore handles participant persistence.
type UserStore interface {
	// CreateUser creates a member with a hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest tracked by session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdateUserRole changes a user's role (member, moderator, admin).
	UpdateUserRole(ctx context.Context, id, role string) error
}

// NotificationStore handles durable notification history and per-user
// delivery preferences.
type NotificationStore interface {
	// AppendNotification persists a notification and returns its ID.
	AppendNotification(ctx context.Context, n *Notification) (int64, error)

	// ListNotifications returns the user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)

	// ClearNotifications empties the user's notification list.
	ClearNotifications(ctx context.Context, userID string) error

	// GetNotificationPreferences returns the user's type -> enabled map.
	// Types absent from the map are treated as enabled.
	GetNotificationPreferences(ctx context.Context, userID string) (map[string]bool, error)

	// SetNotificationPreference flips one notification type for a user.
	SetNotificationPreference(ctx context.Context, userID, notifType string, enabled bool) error
}

// ScheduleStore handles scheduled-stream records.
type ScheduleStore interface {
	// CreateScheduledStream persists a schedule record and returns it with ID.
	CreateScheduledStream(ctx context.Context, s *ScheduledStream) (*ScheduledStream, error)

	// ListScheduledStreams returns a cohort's schedule, soonest first.
	ListScheduledStreams(ctx context.Context, cohortID string) ([]ScheduledStream, error)
}

// Store is the combined persistence collaborator.
type Store interface {
	UserStore
	NotificationStore
	ScheduleStore

	// Close releases the underlying database.
	Close() error
}
