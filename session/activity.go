package session

import (
	"sync"

	"github.com/jrsteele09/temoins-console/tokenstore"
)

// ActivityEvent is a user interaction that counts as activity.
type ActivityEvent string

const (
	EventMouseDown  ActivityEvent = "mousedown"
	EventMouseMove  ActivityEvent = "mousemove"
	EventKeyDown    ActivityEvent = "keydown"
	EventScroll     ActivityEvent = "scroll"
	EventTouchStart ActivityEvent = "touchstart"
	EventClick      ActivityEvent = "click"
)

var activityEvents = map[ActivityEvent]struct{}{
	EventMouseDown: {}, EventMouseMove: {}, EventKeyDown: {},
	EventScroll: {}, EventTouchStart: {}, EventClick: {},
}

// ActivityTracker listens for user interaction while started.
type ActivityTracker interface {
	Start()
	Stop()
}

// EventTracker records lastActivity for every ActivityEvent passed to Notify between
// Start and Stop. Events outside that window are dropped, as are bursts that overflow
// the buffer: one recorded event per burst is enough.
type EventTracker struct {
	store  tokenstore.Store
	events chan ActivityEvent

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

var _ ActivityTracker = (*EventTracker)(nil)

func NewEventTracker(store tokenstore.Store) *EventTracker {
	return &EventTracker{
		store:  store,
		events: make(chan ActivityEvent, 16),
	}
}

// Notify reports a user interaction. It never blocks.
func (t *EventTracker) Notify(ev ActivityEvent) {
	if _, ok := activityEvents[ev]; !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	select {
	case t.events <- ev:
	default:
	}
}

func (t *EventTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stop, t.done)
}

func (t *EventTracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()
	<-done

	// drop events queued before Stop
	for {
		select {
		case <-t.events:
		default:
			return
		}
	}
}

func (t *EventTracker) loop(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-t.events:
			tokenstore.Touch(t.store, NowTimeFunc())
		}
	}
}
