package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cohortlabs/cohort-hub/internal/store"
)

// Hub binds transport connections to cohort rooms and exposes every room
// mutation as a synchronous operation. Errors are returned to the caller
// (the originating connection) only; accepted mutations are broadcast by the
// owning room before the call returns.
type Hub struct {
	registry *Registry
	notifier *Dispatcher
	log      *zerolog.Logger

	mu     sync.Mutex
	joined map[*Client]string              // client -> subscribed room
	users  map[string]map[*Client]struct{} // userID -> live connections
}

// NewHub creates a hub with its own room registry and notification
// dispatcher.
func NewHub(opts Options, history store.NotificationStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		registry: NewRegistry(opts),
		log:      logger,
		joined:   make(map[*Client]string),
		users:    make(map[string]map[*Client]struct{}),
	}
	h.notifier = NewDispatcher(history, h.ConnectionsFor, logger)
	return h
}

// Notifier exposes the dispatcher for targeted deliveries.
func (h *Hub) Notifier() *Dispatcher {
	return h.notifier
}

// Join subscribes the connection to roomID. The room queues the
// authoritative snapshot as the client's first event before any later
// broadcast. Joining while subscribed elsewhere leaves the old room first;
// a reconnect is simply a fresh Join.
func (h *Hub) Join(c *Client, roomID string) error {
	if roomID == "" {
		return validationError("cohort id is required")
	}

	h.Leave(c)

	room := h.registry.GetOrCreate(roomID)

	h.mu.Lock()
	h.joined[c] = roomID
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
	h.mu.Unlock()

	room.subscribe(c)
	h.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID).Str("room", roomID).Msg("client joined cohort")
	return nil
}

// Leave deregisters the connection. Idempotent; never fails when the client
// is already gone.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	roomID, wasJoined := h.joined[c]
	delete(h.joined, c)
	if conns, ok := h.users[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.UserID)
		}
	}
	h.mu.Unlock()

	if !wasJoined {
		return
	}
	if room, ok := h.registry.Peek(roomID); ok {
		room.unsubscribe(c)
	}
	h.registry.Release(roomID)
	h.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID).Str("room", roomID).Msg("client left cohort")
}

// ConnectionsFor returns the user's live connections across all rooms.
func (h *Hub) ConnectionsFor(userID string) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		conns = append(conns, c)
	}
	return conns
}

// roomFor resolves the room a client is acting on. Commands always name
// their cohort; acting on a room the connection never joined is rejected.
func (h *Hub) roomFor(c *Client, roomID string) (*Room, error) {
	h.mu.Lock()
	joined := h.joined[c]
	h.mu.Unlock()

	if joined == "" || joined != roomID {
		return nil, notFoundError("not joined to this cohort")
	}
	room, ok := h.registry.Peek(roomID)
	if !ok {
		return nil, notFoundError("unknown cohort")
	}
	return room, nil
}

// SendMessage admits a chat message into the cohort.
func (h *Hub) SendMessage(c *Client, roomID, text string) (ChatMessage, error) {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return ChatMessage{}, err
	}
	return room.SendMessage(c.UserID, c.DisplayName, text)
}

// Ban adds a user to the cohort's ban set.
func (h *Hub) Ban(ctx context.Context, c *Client, roomID, targetUserID string) error {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return err
	}
	if err := room.Ban(c.Role, targetUserID, c.UserID); err != nil {
		return err
	}
	if err := h.notifier.Notify(ctx, targetUserID, NotifyModeration, "Moderation", "You were banned from cohort "+roomID); err != nil {
		h.log.Warn().Err(err).Str("user_id", targetUserID).Msg("ban notification failed")
	}
	return nil
}

// CreatePoll opens the cohort's single active poll.
func (h *Hub) CreatePoll(c *Client, roomID, question string, options []string) (*PollView, error) {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return nil, err
	}
	return room.CreatePoll(c.Role, question, options)
}

// Vote records the connection's vote on the open poll.
func (h *Hub) Vote(c *Client, roomID, option string) error {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return err
	}
	return room.Vote(c.UserID, c.DisplayName, option)
}

// EndPoll closes the open poll.
func (h *Hub) EndPoll(c *Client, roomID string) error {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return err
	}
	return room.EndPoll(c.Role)
}

// UpdateStream maps the dashboard's status command onto the stream state
// machine: live starts the stream, offline stops it. Scheduled is owned by
// the external scheduler, not this command.
func (h *Hub) UpdateStream(ctx context.Context, c *Client, roomID, status, url string) error {
	room, err := h.roomFor(c, roomID)
	if err != nil {
		return err
	}

	parsed, ok := ParseStreamStatus(status)
	if !ok || parsed == StreamScheduled {
		return validationError("status must be live or offline")
	}

	if parsed == StreamLive {
		if err := room.StartStream(c.Role, url); err != nil {
			return err
		}
		h.notifier.NotifyUsers(ctx, room.subscriberUsers(), c.UserID,
			NotifyStreamStart, "Stream started", "The cohort stream is now live")
		return nil
	}
	return room.StopStream(c.Role)
}

// ScheduleStream broadcasts a schedule record into the room, if it is live
// in memory, and reminds current subscribers. Persistence belongs to the
// caller.
func (h *Hub) ScheduleStream(ctx context.Context, sched *store.ScheduledStream) {
	room, ok := h.registry.Peek(sched.CohortID)
	if !ok {
		return
	}
	room.MarkScheduled(sched)
	h.notifier.NotifyUsers(ctx, room.subscriberUsers(), sched.CreatedBy,
		NotifyStreamStart, "Stream scheduled", sched.Title+" starts at "+sched.StartsAt.Format("Jan 2 15:04 MST"))
}

// Attendance feeds a presence event into the cohort's leaderboard.
func (h *Hub) Attendance(roomID, userID, displayName string) {
	room, ok := h.registry.Peek(roomID)
	if !ok {
		return
	}
	room.RecordAttendance(userID, displayName)
}

// Snapshot returns the authoritative room state plus version. Unknown rooms
// yield a zero snapshot at version 0, matching what a first joiner would see.
func (h *Hub) Snapshot(roomID string) *Snapshot {
	if room, ok := h.registry.Peek(roomID); ok {
		return room.Snapshot()
	}
	return &Snapshot{
		Room:        roomID,
		Stream:      StreamState{Status: StreamOffline},
		Messages:    []ChatMessage{},
		Banned:      []string{},
		Leaderboard: []LeaderboardEntry{},
	}
}

// Leaderboard returns the cohort's current ranking.
func (h *Hub) Leaderboard(roomID string) []LeaderboardEntry {
	if room, ok := h.registry.Peek(roomID); ok {
		return room.Leaderboard()
	}
	return []LeaderboardEntry{}
}

// Analytics returns the cohort's engagement series. Unknown rooms yield
// empty series and a zero score.
func (h *Hub) Analytics(roomID string) *AnalyticsView {
	if room, ok := h.registry.Peek(roomID); ok {
		return room.Analytics()
	}
	return &AnalyticsView{Viewers: []int{}, Chats: []int{}}
}

// ActivePoll returns the open poll, or nil.
func (h *Hub) ActivePoll(roomID string) *PollView {
	if room, ok := h.registry.Peek(roomID); ok {
		return room.ActivePoll()
	}
	return nil
}

// Rooms reports the number of live rooms.
func (h *Hub) Rooms() int {
	return h.registry.Len()
}
