package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cohortlabs/cohort-hub/internal/store"
)

// Room owns all live state for one cohort. Every mutation happens under the
// room mutex, which is the room's single serialization point: operations on
// one room run one at a time in arrival order while different rooms proceed
// in parallel. Accepted mutations are stamped with the next room version and
// broadcast to subscribers before the mutex is released, so per-room delivery
// order always matches version order.
type Room struct {
	ID string

	mu      sync.Mutex
	version uint64
	stream  StreamState
	poll    *Poll
	bans    map[string]BanEntry
	chat    *chatLog
	board   *leaderboard
	stats   *analytics
	subs    map[*Client]struct{}

	chatMaxLen int
	now        func() time.Time
}

func newRoom(id string, opts Options) *Room {
	return &Room{
		ID:         id,
		stream:     StreamState{Status: StreamOffline},
		bans:       make(map[string]BanEntry),
		chat:       newChatLog(opts.ChatLogCapacity),
		board:      newLeaderboard(opts.Weights),
		stats:      newAnalytics(),
		subs:       make(map[*Client]struct{}),
		chatMaxLen: opts.ChatMaxLen,
		now:        opts.now,
	}
}

// subscribe queues the authoritative snapshot as the client's first event and
// begins forwarding subsequent broadcasts.
func (r *Room) subscribe(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.send(&Event{
		Kind:     EventSnapshot,
		Room:     r.ID,
		Version:  r.version,
		Snapshot: r.snapshotLocked(),
	})
	r.subs[c] = struct{}{}
	r.stats.recordViewers(r.now(), len(r.subs))
}

// unsubscribe is idempotent.
func (r *Room) unsubscribe(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, c)
	r.stats.recordViewers(r.now(), len(r.subs))
}

// broadcast stamps ev with the next version and fans it out. A subscriber
// whose buffer is full is detached instead of skipped: it resynchronizes via
// a fresh snapshot on reconnect, never observes a gap.
func (r *Room) broadcast(ev *Event) {
	r.version++
	ev.Room = r.ID
	ev.Version = r.version
	for c := range r.subs {
		if !c.send(ev) {
			delete(r.subs, c)
			c.Close()
		}
	}
}

// SendMessage admits a chat message. The ban check happens here, against the
// ban set at admission time; the hub, not each client, owns enforcement.
func (r *Room) SendMessage(userID, displayName, text string) (ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if text == "" {
		return ChatMessage{}, validationError("message text is required")
	}
	if r.chatMaxLen > 0 && len(text) > r.chatMaxLen {
		return ChatMessage{}, validationError("message text too long")
	}
	if _, banned := r.bans[userID]; banned {
		return ChatMessage{}, forbiddenError("user is banned from this cohort")
	}

	now := r.now()
	msg := r.chat.append(userID, displayName, text, now)
	r.broadcast(&Event{Kind: EventMessage, Message: &msg})

	r.board.recordChat(userID, displayName, now)
	r.broadcast(&Event{Kind: EventLeaderboard, Leaderboard: r.board.snapshot()})

	r.stats.recordChat(now)
	r.broadcast(&Event{Kind: EventAnalytics, Analytics: r.stats.view()})
	return msg, nil
}

// Ban adds the user to the ban set. Idempotent; the ban is prospective only,
// already admitted messages stay in the log.
func (r *Room) Ban(actor Role, targetUserID, bannedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !actor.CanModerate() {
		return authorizationError("moderator role required to ban users")
	}
	if targetUserID == "" {
		return validationError("target user is required")
	}
	if _, already := r.bans[targetUserID]; already {
		return nil
	}

	r.bans[targetUserID] = BanEntry{
		UserID:   targetUserID,
		BannedBy: bannedBy,
		BannedAt: r.now(),
	}
	r.broadcast(&Event{Kind: EventUserBanned, BannedUserID: targetUserID})
	return nil
}

// CreatePoll opens the room's single active poll.
func (r *Room) CreatePoll(actor Role, question string, options []string) (*PollView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !actor.CanModerate() {
		return nil, authorizationError("moderator role required to start polls")
	}
	if r.poll != nil {
		return nil, conflictError("a poll is already open")
	}

	poll, err := newPoll(uuid.NewString(), question, options)
	if err != nil {
		return nil, err
	}
	r.poll = poll
	view := poll.view()
	r.broadcast(&Event{Kind: EventPollUpdate, Poll: view})
	return view, nil
}

// Vote records a single vote for the open poll.
func (r *Room) Vote(userID, displayName, option string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poll == nil {
		return notFoundError("no open poll")
	}
	if err := r.poll.vote(userID, option); err != nil {
		return err
	}

	r.broadcast(&Event{Kind: EventPollUpdate, Poll: r.poll.view()})
	r.board.recordVote(userID, displayName, r.now())
	r.broadcast(&Event{Kind: EventLeaderboard, Leaderboard: r.board.snapshot()})
	return nil
}

// EndPoll closes the open poll, emits the terminal signal with the final
// tally, and clears the active-poll slot.
func (r *Room) EndPoll(actor Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !actor.CanModerate() {
		return authorizationError("moderator role required to end polls")
	}
	if r.poll == nil {
		return notFoundError("no open poll")
	}

	r.poll.State = PollClosed
	final := r.poll.view()
	r.poll = nil
	r.broadcast(&Event{Kind: EventPollEnded, Poll: final})
	return nil
}

// StartStream transitions the room to Live. Already live with the same url
// is a no-op that still broadcasts the current state.
func (r *Room) StartStream(actor Role, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !actor.CanModerate() {
		return authorizationError("moderator role required to start the stream")
	}

	r.stream = StreamState{Status: StreamLive, URL: url}
	state := r.stream
	r.broadcast(&Event{Kind: EventStreamStatus, Stream: &state})
	return nil
}

// StopStream transitions the room to Offline and clears the url.
func (r *Room) StopStream(actor Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !actor.CanModerate() {
		return authorizationError("moderator role required to stop the stream")
	}

	r.stream = StreamState{Status: StreamOffline}
	state := r.stream
	r.broadcast(&Event{Kind: EventStreamStatus, Stream: &state})
	return nil
}

// MarkScheduled records the external scheduler's marker. Scheduled behaves
// like Offline for authorization; a live stream is not interrupted.
func (r *Room) MarkScheduled(sched *store.ScheduledStream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream.Status != StreamLive {
		r.stream = StreamState{Status: StreamScheduled}
	}
	r.broadcast(&Event{Kind: EventStreamScheduled, Scheduled: sched})
}

// RecordAttendance feeds a presence event from the external presence
// collaborator into the leaderboard.
func (r *Room) RecordAttendance(userID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.board.recordAttendance(userID, displayName, r.now())
	r.broadcast(&Event{Kind: EventLeaderboard, Leaderboard: r.board.snapshot()})
}

// subscriberUsers returns the distinct userID -> display name of current
// subscribers, used for room-wide targeted notifications.
func (r *Room) subscriberUsers() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make(map[string]string, len(r.subs))
	for c := range r.subs {
		users[c.UserID] = c.DisplayName
	}
	return users
}

// Snapshot returns the full authoritative state plus version.
func (r *Room) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Leaderboard returns the current ranked entries.
func (r *Room) Leaderboard() []LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board.snapshot()
}

// Analytics returns the current engagement series.
func (r *Room) Analytics() *AnalyticsView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.view()
}

// ActivePoll returns the open poll view, or nil.
func (r *Room) ActivePoll() *PollView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poll == nil {
		return nil
	}
	return r.poll.view()
}

// IsBanned reports whether userID is currently banned.
func (r *Room) IsBanned(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, banned := r.bans[userID]
	return banned
}

func (r *Room) snapshotLocked() *Snapshot {
	banned := make([]string, 0, len(r.bans))
	for userID := range r.bans {
		banned = append(banned, userID)
	}
	sort.Strings(banned)

	var poll *PollView
	if r.poll != nil {
		poll = r.poll.view()
	}
	return &Snapshot{
		Room:        r.ID,
		Version:     r.version,
		Stream:      r.stream,
		Poll:        poll,
		Messages:    r.chat.messages(),
		Banned:      banned,
		Leaderboard: r.board.snapshot(),
	}
}
