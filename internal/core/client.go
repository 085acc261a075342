package core

import "sync/atomic"

// Client is one transport connection as seen by the hub: a (userID, role,
// room) binding with an ordered event feed. Connections are transient; a
// reconnect is a fresh client.
type Client struct {
	ID          string
	UserID      string
	DisplayName string
	Role        Role

	// Events is drained by the transport write loop. Delivery order per room
	// matches version order; the snapshot is always the first room event.
	Events chan *Event

	done   chan struct{}
	closed atomic.Bool

	// lastVersion is the version of the last room event queued for this
	// client. Written only under the owning room's lock.
	lastVersion uint64
}

const defaultEventBuffer = 64

// NewClient constructs a client with an initialized event feed.
func NewClient(id, userID, displayName string, role Role) *Client {
	if displayName == "" {
		displayName = userID
	}
	return &Client{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		Role:        role,
		Events:      make(chan *Event, defaultEventBuffer),
		done:        make(chan struct{}),
	}
}

// send queues an event without blocking. It returns false when the client is
// detached or its buffer is full: the hub then drops the whole subscription
// rather than skip an event, so a subscriber never observes a gap.
func (c *Client) send(ev *Event) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.Events <- ev:
		if ev.Version > 0 {
			c.lastVersion = ev.Version
		}
		return true
	default:
		return false
	}
}

// Close detaches the client; Done is signalled and later sends are refused.
// The Events channel itself stays open so concurrent senders never panic.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
}

// Done is closed when the client has been detached.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
