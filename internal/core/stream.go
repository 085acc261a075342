package core

// StreamStatus is a closed enumeration of stream states. The original UI
// carried the status as a free-form string; the hub only ever broadcasts one
// of these values.
type StreamStatus string

const (
	StreamOffline   StreamStatus = "offline"
	StreamScheduled StreamStatus = "scheduled"
	StreamLive      StreamStatus = "live"
)

// ParseStreamStatus reports the matching status and whether s named one.
func ParseStreamStatus(s string) (StreamStatus, bool) {
	switch StreamStatus(s) {
	case StreamOffline, StreamScheduled, StreamLive:
		return StreamStatus(s), true
	default:
		return StreamOffline, false
	}
}

// StreamState is the room's current stream. URL is opaque to the hub; video
// transport is an external concern.
type StreamState struct {
	Status StreamStatus `json:"status"`
	URL    string       `json:"url,omitempty"`
}
