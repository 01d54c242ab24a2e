package stream

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives events from topics it is subscribed to. Delivery is
// credit-based: the connection grants credits for how many events it is
// ready to take, and the broker skips it once they run out. A subscriber
// may also mute actors, so a client watching a page is not echoed the
// actions it performed itself.
type Subscriber struct {
	// id uniquely identifies this subscriber (usually the connection ID).
	id string

	// ch is the buffered channel events are sent on.
	ch chan *Event

	// credits tracks remaining flow-control credits.
	// When zero, the broker skips this subscriber.
	credits atomic.Int64

	// dropped counts events lost to credit exhaustion or a full buffer.
	dropped atomic.Int64

	// topics tracks which topics this subscriber is on; muted holds actor
	// refs whose events are withheld.
	topics map[string]struct{}
	muted  map[string]struct{}
	mu     sync.RWMutex

	// closed prevents double-close of the channel.
	closed atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size
// and initial credits.
func NewSubscriber(id string, bufferSize int, initialCredits int64) *Subscriber {
	s := &Subscriber{
		id:     id,
		ch:     make(chan *Event, bufferSize),
		topics: make(map[string]struct{}),
	}
	s.credits.Store(initialCredits)
	return s
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only event channel.
func (s *Subscriber) C() <-chan *Event { return s.ch }

// AddCredits replenishes flow-control credits.
func (s *Subscriber) AddCredits(n int64) {
	s.credits.Add(n)
}

// Credits returns the current credit count.
func (s *Subscriber) Credits() int64 {
	return s.credits.Load()
}

// Dropped returns how many events were lost to credit exhaustion or
// backpressure since the subscriber was created.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Mute withholds events performed by the given actor ref. Typical use is a
// client muting its own identity to avoid seeing echoes of its actions.
func (s *Subscriber) Mute(actorRef string) {
	s.mu.Lock()
	if s.muted == nil {
		s.muted = make(map[string]struct{})
	}
	s.muted[actorRef] = struct{}{}
	s.mu.Unlock()
}

// Unmute lifts a Mute for the given actor ref.
func (s *Subscriber) Unmute(actorRef string) {
	s.mu.Lock()
	delete(s.muted, actorRef)
	s.mu.Unlock()
}

// isMuted reports whether the event's actor is muted.
func (s *Subscriber) isMuted(evt *Event) bool {
	if evt.Actor == "" {
		return false
	}
	s.mu.RLock()
	_, ok := s.muted[evt.Actor]
	s.mu.RUnlock()
	return ok
}

// addTopic records that this subscriber is on the given topic.
func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

// removeTopic removes a topic from the subscriber's tracked set.
func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics returns a copy of all subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	return out
}

// send attempts to deliver an event. A muted actor is withheld silently;
// credit exhaustion and a full buffer count as drops.
func (s *Subscriber) send(evt *Event) bool {
	if s.closed.Load() {
		return false
	}
	if s.isMuted(evt) {
		return false
	}

	// Check credits.
	for {
		current := s.credits.Load()
		if current <= 0 {
			s.dropped.Add(1)
			return false
		}
		if s.credits.CompareAndSwap(current, current-1) {
			break
		}
	}

	// Non-blocking send.
	select {
	case s.ch <- evt:
		return true
	default:
		// Buffer full, restore credit.
		s.credits.Add(1)
		s.dropped.Add(1)
		return false
	}
}

// Close closes the subscriber channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
