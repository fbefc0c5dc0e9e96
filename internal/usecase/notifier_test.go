package usecase

import (
	"testing"

	"github.com/jaennil/guide_helper/backend/tilerender/internal/repository/cache"
)

func TestNotifierCoalesces(t *testing.T) {
	n := NewNotifier()
	events, unsubscribe := n.Subscribe()
	defer unsubscribe()

	first := Event{Key: cache.Key{Z: 12, X: 1, Y: 1}, Kind: cache.TaskShapes}
	n.Notify(first)
	n.Notify(Event{Key: cache.Key{Z: 12, X: 2, Y: 2}, Kind: cache.TaskLabels})

	if got := <-events; got != first {
		t.Errorf("got %+v, want %+v", got, first)
	}
	select {
	case e := <-events:
		t.Errorf("expected the second event to be coalesced, got %+v", e)
	default:
	}
}

func TestNotifierFansOut(t *testing.T) {
	n := NewNotifier()
	a, unsubA := n.Subscribe()
	b, unsubB := n.Subscribe()
	defer unsubA()
	defer unsubB()

	n.Notify(Event{Key: cache.Key{Z: 12}})

	for i, ch := range []<-chan Event{a, b} {
		select {
		case <-ch:
		default:
			t.Errorf("subscriber %d missed the event", i)
		}
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier()
	events, unsubscribe := n.Subscribe()

	if n.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n.Subscribers())
	}

	unsubscribe()
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", n.Subscribers())
	}

	n.Notify(Event{})
}

func TestNotifierClose(t *testing.T) {
	n := NewNotifier()
	events, unsubscribe := n.Subscribe()

	n.Close()

	if _, ok := <-events; ok {
		t.Error("channel should be closed after Close")
	}
	if n.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", n.Subscribers())
	}
	unsubscribe()

	late, unsubscribeLate := n.Subscribe()
	defer unsubscribeLate()
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should return a closed channel")
	}

	n.Notify(Event{})
}
