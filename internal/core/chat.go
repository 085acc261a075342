package core

import "time"

// ChatMessage is an admitted chat message. Immutable once admitted; a later
// ban of the sender never retracts it.
type ChatMessage struct {
	ID         int64     `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderDisplayName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// BanEntry records a ban. Membership in the room's ban set is checked at
// message admission time, server-side; that is the authoritative enforcement
// point.
type BanEntry struct {
	UserID   string    `json:"userId"`
	BannedBy string    `json:"bannedBy"`
	BannedAt time.Time `json:"bannedAt"`
}

// chatLog is a bounded, ordered message sequence, most recent last. Message
// IDs are monotonic per room.
type chatLog struct {
	capacity int
	nextID   int64
	msgs     []ChatMessage
}

func newChatLog(capacity int) *chatLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &chatLog{capacity: capacity, nextID: 1}
}

// append admits a message, assigning its per-room ID, and evicts the oldest
// entry when over capacity.
func (l *chatLog) append(senderID, senderName, text string, at time.Time) ChatMessage {
	msg := ChatMessage{
		ID:         l.nextID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Timestamp:  at,
	}
	l.nextID++
	l.msgs = append(l.msgs, msg)
	if len(l.msgs) > l.capacity {
		l.msgs = l.msgs[len(l.msgs)-l.capacity:]
	}
	return msg
}

// messages returns a copy of the retained log.
func (l *chatLog) messages() []ChatMessage {
	out := make([]ChatMessage, len(l.msgs))
	copy(out, l.msgs)
	return out
}
