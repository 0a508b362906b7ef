// Package broadcast fans real-time events out to live push connections.
//
// The Broadcaster is constructed once at process start and shut down
// explicitly with CloseAll; handlers receive it as a dependency rather than
// reaching for a package global.
package broadcast

import (
	"log"
	"sync"
)

// Event types written to push connections.
const (
	EventConnected = "connected"
	EventMessage   = "message"
	EventPing      = "ping"
)

// Event is one framed push event.
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

// Connection is one subscriber's buffered event stream. Events arrives
// buffered up to the broadcaster's capacity; a consumer that stops draining
// is evicted on the next publish rather than slowing anyone down.
type Connection struct {
	UserID string
	Events chan Event
}

// DefaultCapacity is the per-connection buffer size when none is configured.
const DefaultCapacity = 100

// Broadcaster is a process-wide registry of live connections keyed by user.
type Broadcaster struct {
	mu       sync.Mutex
	conns    map[string]map[*Connection]struct{}
	capacity int
	closed   bool
}

// New creates a Broadcaster with the given per-connection buffer capacity.
func New(capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		conns:    make(map[string]map[*Connection]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new connection for the user. It returns nil if the
// broadcaster has been shut down.
func (b *Broadcaster) Subscribe(userID string) *Connection {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	conn := &Connection{
		UserID: userID,
		Events: make(chan Event, b.capacity),
	}
	set, ok := b.conns[userID]
	if !ok {
		set = make(map[*Connection]struct{})
		b.conns[userID] = set
	}
	set[conn] = struct{}{}
	return conn
}

// Unsubscribe removes a connection and closes its event channel. The user's
// registry entry is garbage-collected once its last connection is gone.
// Unsubscribing twice is a no-op.
func (b *Broadcaster) Unsubscribe(conn *Connection) {
	if conn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(conn)
}

// Publish delivers an event to every live connection of the user with a
// non-blocking send. A connection whose buffer is full is dropped from the
// registry: publish latency never depends on a slow consumer. Publishing to
// a user with no connections is a silent no-op — durable delivery is the
// Message record's job, the push is best-effort. Returns the number of
// connections that received the event.
func (b *Broadcaster) Publish(userID, eventType string, data any) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.conns[userID]
	if !ok {
		return 0
	}

	delivered := 0
	var evict []*Connection
	for conn := range set {
		select {
		case conn.Events <- Event{Type: eventType, Data: data}:
			delivered++
		default:
			evict = append(evict, conn)
		}
	}
	for _, conn := range evict {
		log.Printf("broadcast: dropping slow consumer for user %s", userID)
		b.removeLocked(conn)
	}
	return delivered
}

// ConnectionCount returns the number of live connections for a user.
func (b *Broadcaster) ConnectionCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns[userID])
}

// CloseAll force-closes every connection and rejects further subscriptions.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.conns {
		for conn := range set {
			close(conn.Events)
		}
	}
	b.conns = make(map[string]map[*Connection]struct{})
}

// removeLocked deletes a connection and closes its channel. Caller holds mu.
func (b *Broadcaster) removeLocked(conn *Connection) {
	set, ok := b.conns[conn.UserID]
	if !ok {
		return
	}
	if _, present := set[conn]; !present {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(b.conns, conn.UserID)
	}
	close(conn.Events)
}
