package fanout

import (
	"fmt"
	"testing"
)

func newTestConsumer(userID string) *Consumer {
	return &Consumer{userID: userID, send: make(chan []byte, 4)}
}

func TestHubJoinLeaveScopesToGroup(t *testing.T) {
	hub := NewHub()
	alice := newTestConsumer("alice")
	bob := newTestConsumer("bob")

	hub.Join("five_hundred", "t1", alice)
	hub.Join("five_hundred", "t2", bob)

	var reached []string
	hub.Broadcast("five_hundred", "t1", func(c *Consumer) ([]byte, error) {
		reached = append(reached, c.userID)
		return []byte("{}"), nil
	})

	if len(reached) != 1 || reached[0] != "alice" {
		t.Fatalf("expected broadcast to reach only alice, got %v", reached)
	}

	hub.Leave("five_hundred", "t1", alice)
	reached = nil
	hub.Broadcast("five_hundred", "t1", func(c *Consumer) ([]byte, error) {
		reached = append(reached, c.userID)
		return []byte("{}"), nil
	})
	if len(reached) != 0 {
		t.Fatalf("expected no members left in t1's group, got %v", reached)
	}
}

func TestHubLeaveIsIdempotent(t *testing.T) {
	hub := NewHub()
	alice := newTestConsumer("alice")

	// Leaving a group the consumer never joined must not panic.
	hub.Leave("five_hundred", "ghost-table", alice)

	hub.Join("five_hundred", "t1", alice)
	hub.Leave("five_hundred", "t1", alice)
	hub.Leave("five_hundred", "t1", alice)
}

func TestHubBroadcastDeliversPayloadToSendChannel(t *testing.T) {
	hub := NewHub()
	alice := newTestConsumer("alice")
	hub.Join("five_hundred", "t1", alice)

	hub.Broadcast("five_hundred", "t1", func(c *Consumer) ([]byte, error) {
		return []byte(fmt.Sprintf("hello %s", c.userID)), nil
	})

	select {
	case payload := <-alice.send:
		if string(payload) != "hello alice" {
			t.Fatalf("unexpected payload: %s", payload)
		}
	default:
		t.Fatal("expected a payload on alice's send channel")
	}
}

func TestHubBroadcastSkipsFullSendBuffer(t *testing.T) {
	hub := NewHub()
	alice := &Consumer{userID: "alice", send: make(chan []byte)} // unbuffered, always full from a non-blocking send
	hub.Join("five_hundred", "t1", alice)

	// Must not block even though nothing ever drains alice.send.
	hub.Broadcast("five_hundred", "t1", func(c *Consumer) ([]byte, error) {
		return []byte("dropped"), nil
	})
}

func TestHubBroadcastSkipsBuildError(t *testing.T) {
	hub := NewHub()
	alice := newTestConsumer("alice")
	hub.Join("five_hundred", "t1", alice)

	hub.Broadcast("five_hundred", "t1", func(c *Consumer) ([]byte, error) {
		return nil, fmt.Errorf("boom")
	})

	select {
	case <-alice.send:
		t.Fatal("expected no payload to be sent when build fails")
	default:
	}
}
