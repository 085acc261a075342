package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for commands coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client -> hub command types. Names match the dashboard's socket events.
const (
	InboundJoinCohort   = "join-cohort"
	InboundSendMessage  = "send-message"
	InboundVote         = "vote"
	InboundBanUser      = "ban-user"
	InboundStartPoll    = "start-poll"
	InboundEndPoll      = "end-poll"
	InboundUpdateStream = "update-stream-status"
)

// Hub -> client event types.
const (
	OutboundSnapshot        = "snapshot"
	OutboundStreamStatus    = "stream-status-change"
	OutboundPollUpdate      = "poll-update"
	OutboundPollEnded       = "poll-ended"
	OutboundMessage         = "message"
	OutboundUserBanned      = "user-banned"
	OutboundLeaderboard     = "leaderboard-update"
	OutboundAnalytics       = "analytics-update"
	OutboundStreamScheduled = "stream-scheduled"
	OutboundNotification    = "notification"
	OutboundError           = "error"
)

// JoinCohortData subscribes the connection to a cohort.
type JoinCohortData struct {
	CohortID string `json:"cohortId"`
}

// SendMessageData is a chat message from the client.
type SendMessageData struct {
	CohortID string `json:"cohortId"`
	Text     string `json:"text"`
}

// VoteData casts a vote on the cohort's open poll.
type VoteData struct {
	CohortID string `json:"cohortId"`
	Option   string `json:"option"`
}

// BanUserData bans a user from the cohort (moderator only).
type BanUserData struct {
	CohortID string `json:"cohortId"`
	UserID   string `json:"userId"`
}

// StartPollData opens a poll (moderator only).
type StartPollData struct {
	CohortID string   `json:"cohortId"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// EndPollData closes the open poll (moderator only).
type EndPollData struct {
	CohortID string `json:"cohortId"`
}

// UpdateStreamData starts or stops the stream (moderator only).
type UpdateStreamData struct {
	CohortID string `json:"cohortId"`
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
}

// Outbound is the envelope for events pushed to the client. Room-scoped
// events carry the cohort and the room version they were stamped with.
type Outbound struct {
	Type     string `json:"type"`
	CohortID string `json:"cohortId,omitempty"`
	Version  uint64 `json:"version,omitempty"`
	Data     any    `json:"data,omitempty"`
	Error    *Error `json:"error,omitempty"`
}

// StreamStatusData mirrors the stream-status-change payload.
type StreamStatusData struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// MessageData mirrors the chat message payload.
type MessageData struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"senderId"`
	Username  string    `json:"senderDisplayName"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserBannedData announces a ban to the room.
type UserBannedData struct {
	UserID string `json:"userId"`
}

// Error describes a protocol- or domain-level error response, delivered to
// the originating connection only.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
