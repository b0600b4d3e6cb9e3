package events

import (
	"sync"

	"go.uber.org/zap"
)

// Broadcaster fans events out to zero or more observers. Publishing never
// blocks the control loop: each subscriber has a bounded queue and the oldest
// event is dropped when a slow observer falls behind. Delivery is
// best-effort, at most once per event per observer.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	log    *zap.Logger
}

type subscriber struct {
	ch chan Event
}

// NewBroadcaster creates an empty hub. A nil logger disables drop logging.
func NewBroadcaster(log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		subs: make(map[int]*subscriber),
		log:  log,
	}
}

// Subscribe registers an observer with the given queue depth and returns the
// event channel plus a cancel function. The channel is closed on cancel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, buffer)}
	b.subs[id] = sub

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Publish delivers evt to every subscriber without blocking. When a queue is
// full the oldest queued event is discarded to make room.
func (b *Broadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
			// Queue full: drop the oldest event, then retry once. The
			// subscriber may have drained concurrently, so the retry can
			// still fail; the event is then dropped instead.
			select {
			case old := <-sub.ch:
				b.log.Debug("observer backlogged, dropping oldest event",
					zap.String("dropped", old.Type),
					zap.String("incoming", evt.Type))
			default:
			}
			select {
			case sub.ch <- evt:
			default:
				b.log.Debug("observer delivery failed", zap.String("type", evt.Type))
			}
		}
	}
}

// Close removes all subscribers and closes their channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
