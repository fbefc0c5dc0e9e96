package usecase

import (
	"sync"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tilerender/pkg/metrics"
)

// Event reports that a render task finished and the frame should be redrawn.
type Event struct {
	Key  cache.Key
	Kind cache.TaskKind
}

// Notifier fans repaint events out to subscribers. Each subscriber holds at
// most one undelivered event; newer events are dropped while it is full, since
// a repaint always draws the whole snapshot.
type Notifier struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a listener. The returned function unsubscribes and
// closes the channel; it is safe to call more than once. After Close the
// channel comes back already closed.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		close(ch)
		return ch, func() {}
	}
	n.subs[ch] = struct{}{}

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription so open streams can finish.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
}

// Notify never blocks.
func (n *Notifier) Notify(e Event) {
	metrics.RepaintNotifications.Inc()

	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.subs)
}
