package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cohortlabs/cohort-hub/internal/store"
)

// Notification types recognized by the dashboard.
const (
	NotifyChatMention     = "chatMentions"
	NotifyStreamStart     = "streamStarts"
	NotifyNewParticipants = "newParticipants"
	NotifyModeration      = "moderation"
)

const (
	appendRetries      = 3
	appendRetryBackoff = 50 * time.Millisecond
)

// Dispatcher delivers discrete per-user events: filtered by the user's
// stored preferences, pushed to every live connection of that user, and
// appended to the durable notification list.
type Dispatcher struct {
	history store.NotificationStore
	conns   func(userID string) []*Client
	log     *zerolog.Logger
}

// NewDispatcher builds a dispatcher. conns resolves a user's live
// connections across all rooms.
func NewDispatcher(history store.NotificationStore, conns func(string) []*Client, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{history: history, conns: conns, log: logger}
}

// Notify delivers one notification to userID. A disabled type is a silent
// no-op. Store failures are retried with backoff and surface as transient
// errors; the hub's in-memory state is never affected by them.
func (d *Dispatcher) Notify(ctx context.Context, userID, notifType, title, message string) error {
	prefs, err := d.history.GetNotificationPreferences(ctx, userID)
	if err != nil {
		return transientError(fmt.Sprintf("load preferences: %v", err))
	}
	if enabled, set := prefs[notifType]; set && !enabled {
		return nil
	}

	n := &store.Notification{
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	var appendErr error
	for attempt := 1; attempt <= appendRetries; attempt++ {
		var id int64
		if id, appendErr = d.history.AppendNotification(ctx, n); appendErr == nil {
			n.ID = id
			break
		}
		time.Sleep(time.Duration(attempt) * appendRetryBackoff)
	}
	if appendErr != nil {
		return transientError(fmt.Sprintf("append notification: %v", appendErr))
	}

	ev := &Event{Kind: EventNotification, Notification: n}
	for _, c := range d.conns(userID) {
		// Notifications are not room-versioned; a full buffer just skips
		// this connection, the durable list still has the record.
		if !c.send(ev) && d.log != nil {
			d.log.Warn().Str("user_id", userID).Str("conn_id", c.ID).Msg("notification dropped, connection backed up")
		}
	}
	return nil
}

// NotifyUsers fans one notification out to several users, skipping the
// actor. Per-user failures are logged, not propagated; targeted delivery is
// best-effort by design.
func (d *Dispatcher) NotifyUsers(ctx context.Context, users map[string]string, exceptUserID, notifType, title, message string) {
	for userID := range users {
		if userID == exceptUserID {
			continue
		}
		if err := d.Notify(ctx, userID, notifType, title, message); err != nil && d.log != nil {
			d.log.Warn().Err(err).Str("user_id", userID).Msg("notify failed")
		}
	}
}

// Clear empties the user's durable notification list.
func (d *Dispatcher) Clear(ctx context.Context, userID string) error {
	if err := d.history.ClearNotifications(ctx, userID); err != nil {
		return transientError(fmt.Sprintf("clear notifications: %v", err))
	}
	return nil
}
