package diag

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastDropsFrameForFullSlowClient(t *testing.T) {
	s := NewWSServer()
	full := make(chan []byte, 1)
	full <- []byte("stale")
	s.clients[&websocket.Conn{}] = full

	s.broadcast([]byte("new"))

	if len(full) != 1 {
		t.Fatal("expected a full client channel to be left untouched rather than blocked on")
	}
	select {
	case msg := <-full:
		if string(msg) != "stale" {
			t.Fatalf("expected the stale frame to remain queued, got %q", msg)
		}
	default:
		t.Fatal("expected the slow client's queued frame to still be there")
	}
}

func TestBroadcastDeliversToClientWithRoom(t *testing.T) {
	s := NewWSServer()
	out := make(chan []byte, 1)
	s.clients[&websocket.Conn{}] = out

	s.broadcast([]byte("hello"))

	select {
	case msg := <-out:
		if string(msg) != "hello" {
			t.Fatalf("expected %q, got %q", "hello", msg)
		}
	default:
		t.Fatal("expected the broadcast frame to be delivered to the client channel")
	}
}

func TestCloseClearsAllClientsAndClosesChannels(t *testing.T) {
	s := NewWSServer()
	conn := &websocket.Conn{}
	out := make(chan []byte, 1)
	s.clients[conn] = out

	s.Close()

	if len(s.clients) != 0 {
		t.Fatal("expected Close to remove every registered client")
	}
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected the client's channel to be closed")
		}
	default:
		t.Fatal("expected a closed channel to be immediately receivable")
	}
}

func TestMergeEventChannelsFansInFromMultipleProducers(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	a := make(chan Event, 1)
	b := make(chan Event, 1)
	a <- Event{Kind: EventSystemDegraded}
	b <- Event{Kind: EventInputDropped}

	merged := MergeEventChannels(done, a, b)

	seen := make(map[EventKind]bool)
	for i := 0; i < 2; i++ {
		select {
		case e := <-merged:
			seen[e.Kind] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for merged events")
		}
	}
	if !seen[EventSystemDegraded] || !seen[EventInputDropped] {
		t.Fatalf("expected both producer events to appear on the merged channel, got %v", seen)
	}
}
