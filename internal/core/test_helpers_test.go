package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cohortlabs/cohort-hub/internal/store"
)

// mustEvent drains the client feed until an event of the wanted kind shows
// up. Room operations broadcast synchronously, so queued events are already
// there by the time an operation returns.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// memNotifications is an in-memory store.NotificationStore for hub tests.
type memNotifications struct {
	mu     sync.Mutex
	nextID int64
	items  map[string][]store.Notification
	prefs  map[string]map[string]bool
}

func newMemNotifications() *memNotifications {
	return &memNotifications{
		items: make(map[string][]store.Notification),
		prefs: make(map[string]map[string]bool),
	}
}

func (m *memNotifications) AppendNotification(_ context.Context, n *store.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *n
	stored.ID = m.nextID
	m.items[n.UserID] = append(m.items[n.UserID], stored)
	return m.nextID, nil
}

func (m *memNotifications) ListNotifications(_ context.Context, userID string, limit int) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[userID]
	out := make([]store.Notification, 0, len(list))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (m *memNotifications) ClearNotifications(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

func (m *memNotifications) GetNotificationPreferences(_ context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.prefs[userID]))
	for k, v := range m.prefs[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *memNotifications) SetNotificationPreference(_ context.Context, userID, notifType string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs[userID] == nil {
		m.prefs[userID] = make(map[string]bool)
	}
	m.prefs[userID][notifType] = enabled
	return nil
}

func (m *memNotifications) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[userID])
}

func newTestHub(t *testing.T) (*Hub, *memNotifications) {
	t.Helper()
	history := newMemNotifications()
	return NewHub(DefaultOptions(), history, nil), history
}

func newTestRoom(t *testing.T, opts Options) *Room {
	t.Helper()
	return newRoom("cohort-1", opts.withDefaults())
}
