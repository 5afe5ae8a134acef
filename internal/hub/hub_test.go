package hub

import (
	"fmt"
	"testing"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

func headcountMsg(n int) Message {
	return NewHeadcountUpdate(&models.Snapshot{Headcount: n, Source: models.SourceSensor})
}

func TestPublishDeliversInOrder(t *testing.T) {
	h := New(DefaultOptions())
	sub := h.Subscribe("event-1")
	defer h.Unsubscribe(sub)

	h.Publish("event-1", headcountMsg(10))
	h.Publish("event-1", NewAlertMessage(&models.Alert{Type: models.AlertSpike}))
	h.Publish("event-1", NewEventUpdate(10, models.StatusYellow))

	wantTypes := []string{TypeHeadcountUpdate, TypeAlert, TypeEventUpdate}
	for i, want := range wantTypes {
		msg := <-sub.C()
		if msg.Type != want {
			t.Errorf("message %d type = %q, want %q", i, msg.Type, want)
		}
	}
}

func TestSubscribeAfterPublishSeesNothing(t *testing.T) {
	h := New(DefaultOptions())

	h.Publish("event-1", headcountMsg(10))

	sub := h.Subscribe("event-1")
	defer h.Unsubscribe(sub)

	select {
	case msg := <-sub.C():
		t.Fatalf("late subscriber received %v, want nothing", msg)
	default:
	}
}

func TestPublishIsolatedPerEvent(t *testing.T) {
	h := New(DefaultOptions())
	subA := h.Subscribe("event-a")
	subB := h.Subscribe("event-b")
	defer h.Unsubscribe(subA)
	defer h.Unsubscribe(subB)

	h.Publish("event-a", headcountMsg(7))

	msg := <-subA.C()
	if msg.Headcount == nil || *msg.Headcount != 7 {
		t.Errorf("subA got %v, want headcount 7", msg)
	}
	select {
	case msg := <-subB.C():
		t.Fatalf("subB received %v, want nothing", msg)
	default:
	}
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	h := New(Options{SubscriberBuffer: 2})
	slow := h.Subscribe("event-1")
	fast := h.Subscribe("event-1")
	defer h.Unsubscribe(slow)
	defer h.Unsubscribe(fast)

	// Fill and overflow the slow subscriber without ever reading it.
	// Publish must return promptly every time.
	const published = 5
	for i := 0; i < published; i++ {
		h.Publish("event-1", headcountMsg(i))
		// Fast subscriber keeps up.
		msg := <-fast.C()
		if msg.Headcount == nil || *msg.Headcount != i {
			t.Fatalf("fast subscriber got %v, want headcount %d", msg, i)
		}
	}

	if got := slow.Dropped(); got != published-2 {
		t.Errorf("Dropped() = %d, want %d", got, published-2)
	}

	// The slow subscriber's buffer holds the first messages, not the
	// dropped later ones.
	first := <-slow.C()
	if first.Headcount == nil || *first.Headcount != 0 {
		t.Errorf("slow subscriber first message = %v, want headcount 0", first)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New(DefaultOptions())
	sub := h.Subscribe("event-1")

	h.Unsubscribe(sub)
	// Idempotent.
	h.Unsubscribe(sub)

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if n := h.SubscriberCount("event-1"); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := New(Options{SubscriberBuffer: 1})

	// Churn subscribers while publishing. The race detector flags any
	// send racing a close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.Publish("event-1", headcountMsg(i))
		}
	}()

	for i := 0; i < 50; i++ {
		sub := h.Subscribe("event-1")
		h.Unsubscribe(sub)
	}
	<-done
}

func TestSubscriberCountPerEvent(t *testing.T) {
	h := New(DefaultOptions())
	var subs []*Subscription
	for i := 0; i < 3; i++ {
		subs = append(subs, h.Subscribe(fmt.Sprintf("event-%d", i%2)))
	}
	defer func() {
		for _, s := range subs {
			h.Unsubscribe(s)
		}
	}()

	if n := h.SubscriberCount("event-0"); n != 2 {
		t.Errorf("event-0 count = %d, want 2", n)
	}
	if n := h.SubscriberCount("event-1"); n != 1 {
		t.Errorf("event-1 count = %d, want 1", n)
	}
	if n := h.SubscriberCount("event-9"); n != 0 {
		t.Errorf("event-9 count = %d, want 0", n)
	}
}
