package main

import (
	"fmt"
	"testing"
	"time"
)

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	b := newBroadcaster()
	chA, cancelA := b.subscribe("a")
	chB, cancelB := b.subscribe("b")
	defer cancelA()
	defer cancelB()

	b.publish(logNotification("info", "hello"))

	for name, ch := range map[string]<-chan serverNotification{"a": chA, "b": chB} {
		select {
		case event := <-ch:
			if event.Method != "notifications/log" {
				t.Fatalf("subscriber %s got %s", name, event.Method)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s never received the event", name)
		}
	}
}

func TestBroadcastDropsOldestWhenQueueFull(t *testing.T) {
	b := newBroadcaster()
	ch, cancel := b.subscribe("slow")
	defer cancel()

	for i := 0; i <= subscriberBuffer; i++ {
		b.publish(logNotification("info", fmt.Sprintf("event-%d", i)))
	}

	first := <-ch
	if got := first.Params["message"]; got != "event-1" {
		t.Fatalf("expected event-0 dropped, first received %v", got)
	}
}

func TestBroadcastAfterCancelDoesNotPanic(t *testing.T) {
	b := newBroadcaster()
	_, cancel := b.subscribe("gone")
	cancel()
	cancel() // idempotent

	b.publish(logNotification("info", "anyone there"))
	if got := b.subscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestProgressNotificationShape(t *testing.T) {
	event := progressNotification(7, 0, 1, "started")
	if event.Method != "notifications/progress" {
		t.Fatalf("unexpected method %s", event.Method)
	}
	if event.Params["progressToken"] != 7 {
		t.Fatalf("unexpected token %v", event.Params["progressToken"])
	}
	if event.Params["message"] != "started" {
		t.Fatalf("unexpected message %v", event.Params["message"])
	}
}

func TestClientSetBookkeeping(t *testing.T) {
	set := newClientSet()
	set.add(connectedClient{ID: "one", Transport: "sse"})
	set.add(connectedClient{ID: "two", Transport: "websocket"})
	if got := set.count(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	set.remove("one")
	set.remove("one")
	if got := set.count(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}
