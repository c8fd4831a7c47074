package services

import (
	"sync"
	"time"

	"github.com/yoockh/texttalk/internal/models"
)

const NotificationTTL = 2500 * time.Millisecond

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Timer

func realScheduler(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type NotificationOption func(*NotificationState)

func WithScheduler(s Scheduler) NotificationOption {
	return func(n *NotificationState) { n.schedule = s }
}

func WithClock(now func() time.Time) NotificationOption {
	return func(n *NotificationState) { n.now = now }
}

func WithNotificationTTL(d time.Duration) NotificationOption {
	return func(n *NotificationState) { n.ttl = d }
}

// NotificationState holds at most one self-expiring message.
type NotificationState struct {
	mu       sync.Mutex
	current  *models.Notification
	seq      uint64
	timer    Timer
	ttl      time.Duration
	schedule Scheduler
	now      func() time.Time

	subs   map[int]chan models.NotificationEvent
	nextID int
}

func NewNotificationState(opts ...NotificationOption) *NotificationState {
	n := &NotificationState{
		ttl:      NotificationTTL,
		schedule: realScheduler,
		now:      time.Now,
		subs:     map[int]chan models.NotificationEvent{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Show replaces the current notification and restarts the expiry timer.
func (n *NotificationState) Show(message string, kind models.NotificationKind) models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}

	n.seq++
	seq := n.seq
	now := n.now()
	note := &models.Notification{
		Seq:       seq,
		Message:   message,
		Kind:      kind,
		ShownAt:   now,
		ExpiresAt: now.Add(n.ttl),
	}
	n.current = note
	// A stopped timer may already be running its callback; the seq check
	// keeps it from clearing a newer notification.
	n.timer = n.schedule(n.ttl, func() { n.expire(seq) })

	n.publishLocked(models.NotificationEvent{Type: "show", Notification: note})
	return *note
}

func (n *NotificationState) Error(message string) models.Notification {
	return n.Show(message, models.NotificationError)
}

func (n *NotificationState) Success(message string) models.Notification {
	return n.Show(message, models.NotificationSuccess)
}

func (n *NotificationState) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil || n.current.Seq != seq {
		return
	}
	n.current = nil
	n.timer = nil
	n.publishLocked(models.NotificationEvent{Type: "clear"})
}

// Current returns a copy of the active notification, or nil.
func (n *NotificationState) Current() *models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return nil
	}
	cp := *n.current
	return &cp
}

func (n *NotificationState) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.current == nil {
		return
	}
	n.current = nil
	n.publishLocked(models.NotificationEvent{Type: "clear"})
}

// Subscribe streams show/clear events. Slow listeners miss events rather
// than block Show.
func (n *NotificationState) Subscribe() (<-chan models.NotificationEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan models.NotificationEvent, 8)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
}

// Close stops the pending timer and closes all subscriber channels.
func (n *NotificationState) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *NotificationState) publishLocked(ev models.NotificationEvent) {
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
