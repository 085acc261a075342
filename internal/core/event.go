package core

import "github.com/cohortlabs/cohort-hub/internal/store"

// EventKind is a push notification the hub emits to subscribed clients.
type EventKind int

const (
	// EventSnapshot delivers the full room state to a newly joined client.
	EventSnapshot EventKind = iota
	// EventStreamStatus notifies clients about an offline/scheduled/live change.
	EventStreamStatus
	// EventPollUpdate carries the active poll and its tally.
	EventPollUpdate
	// EventPollEnded is the terminal signal when a moderator closes the poll.
	EventPollEnded
	// EventMessage notifies clients about an admitted chat message.
	EventMessage
	// EventUserBanned announces a ban; history is never retracted.
	EventUserBanned
	// EventLeaderboard carries the ranked leaderboard snapshot.
	EventLeaderboard
	// EventAnalytics carries the refreshed engagement series.
	EventAnalytics
	// EventStreamScheduled announces a newly scheduled stream record.
	EventStreamScheduled
	// EventNotification is a per-user targeted delivery, not room state.
	EventNotification
	// EventError reports a domain error to the originating connection only.
	EventError
)

// Event is sent to clients to describe what happened in a room. Room-scoped
// events carry the room version they were stamped with; per-room delivery
// order matches version order.
type Event struct {
	Kind    EventKind
	Room    string
	Version uint64

	Snapshot     *Snapshot
	Stream       *StreamState
	Poll         *PollView
	Message      *ChatMessage
	BannedUserID string
	Leaderboard  []LeaderboardEntry
	Analytics    *AnalyticsView
	Scheduled    *store.ScheduledStream
	Notification *store.Notification
	Error        *CoreError
}

// Snapshot is the full authoritative room state plus its version, used to
// (re)synchronize a joined or reconnected connection.
type Snapshot struct {
	Room        string             `json:"cohortId"`
	Version     uint64             `json:"version"`
	Stream      StreamState        `json:"stream"`
	Poll        *PollView          `json:"poll,omitempty"`
	Messages    []ChatMessage      `json:"messages"`
	Banned      []string           `json:"banned"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}
