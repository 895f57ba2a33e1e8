package notifications

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays visible before it is removed
const DefaultTTL = 3000 * time.Millisecond

// Severity levels for notifications
const (
	SeverityNormal = "normal"
	SeverityAlert  = "alert"
)

// Notification is a transient user-facing message shown on the dashboard
type Notification struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Queue holds active notifications in creation order and removes each one
// automatically after its TTL. Every entry gets its own expiry timer, so
// removal of one never delays the others.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	nextID  int64
	entries []Notification
	timers  map[int64]*time.Timer
	onAdd   func(Notification)
}

// NewQueue creates a queue with the default 3 second TTL
func NewQueue() *Queue {
	return NewQueueWithTTL(DefaultTTL)
}

// NewQueueWithTTL creates a queue with a custom TTL
func NewQueueWithTTL(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:    ttl,
		timers: make(map[int64]*time.Timer),
	}
}

// OnEnqueue registers a callback invoked for every new notification.
// Used to push entries to connected websocket clients.
func (q *Queue) OnEnqueue(fn func(Notification)) {
	q.mu.Lock()
	q.onAdd = fn
	q.mu.Unlock()
}

// Enqueue appends a notification and schedules its removal after the TTL.
// IDs come from a monotonic counter so they are unique for the process
// lifetime. Returns the new notification's id.
func (q *Queue) Enqueue(title, description, severity string) int64 {
	q.mu.Lock()

	q.nextID++
	n := Notification{
		ID:          q.nextID,
		Title:       title,
		Description: description,
		Severity:    severity,
		CreatedAt:   time.Now(),
	}
	q.entries = append(q.entries, n)
	q.timers[n.ID] = time.AfterFunc(q.ttl, func() {
		q.remove(n.ID)
	})
	callback := q.onAdd

	q.mu.Unlock()

	if callback != nil {
		callback(n)
	}
	return n.ID
}

// List returns a snapshot of the active notifications in insertion order
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

// Stop cancels all pending expiry timers. Active entries are dropped; the
// queue must not be used afterwards.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.entries = nil
}

// remove deletes a notification by id. Safe to call more than once; only the
// first call for an id has any effect.
func (q *Queue) remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.timers[id]; !ok {
		return
	}
	delete(q.timers, id)

	for i, n := range q.entries {
		if n.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
}
