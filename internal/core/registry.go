package core

import (
	"sync"
	"time"
)

// Options tune per-room behavior. Zero values fall back to defaults.
type Options struct {
	ChatMaxLen      int
	ChatLogCapacity int
	Weights         ScoreWeights
	GraceWindow     time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time

	now func() time.Time
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		ChatMaxLen:      2000,
		ChatLogCapacity: 200,
		Weights:         DefaultScoreWeights(),
		GraceWindow:     30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.ChatMaxLen <= 0 {
		o.ChatMaxLen = 2000
	}
	if o.ChatLogCapacity <= 0 {
		o.ChatLogCapacity = 200
	}
	if o.Weights == (ScoreWeights{}) {
		o.Weights = DefaultScoreWeights()
	}
	o.now = time.Now
	if o.Now != nil {
		o.now = o.Now
	}
	return o
}

type registryEntry struct {
	room  *Room
	refs  int
	evict *time.Timer
}

// Registry creates and evicts per-cohort rooms. A room lives while any
// connection holds a reference; after the last Release a grace window must
// elapse with zero subscribers before the room is evicted.
type Registry struct {
	mu    sync.Mutex
	opts  Options
	rooms map[string]*registryEntry
}

// NewRegistry builds an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:  opts.withDefaults(),
		rooms: make(map[string]*registryEntry),
	}
}

// GetOrCreate returns the room for roomID, creating it on first join, and
// takes a reference. Safe for concurrent use.
func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.rooms[roomID]
	if !ok {
		entry = &registryEntry{room: newRoom(roomID, g.opts)}
		g.rooms[roomID] = entry
	}
	entry.refs++
	if entry.evict != nil {
		entry.evict.Stop()
		entry.evict = nil
	}
	return entry.room
}

// Release drops one reference. When the count reaches zero the room is
// evicted after the grace window, unless someone joins again first.
func (g *Registry) Release(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.rooms[roomID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}
	entry.refs = 0
	if entry.evict != nil {
		entry.evict.Stop()
	}
	entry.evict = time.AfterFunc(g.opts.GraceWindow, func() {
		g.evictIfIdle(roomID)
	})
}

// Peek returns the room without taking a reference, for read-only callers
// like the snapshot endpoint.
func (g *Registry) Peek(roomID string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.rooms[roomID]
	if !ok {
		return nil, false
	}
	return entry.room, true
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

func (g *Registry) evictIfIdle(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.rooms[roomID]
	if !ok || entry.refs > 0 {
		return
	}
	delete(g.rooms, roomID)
}
