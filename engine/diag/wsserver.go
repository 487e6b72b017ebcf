package diag

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	channerics "github.com/niceyeti/channerics/channels"

	"github.com/gorilla/websocket"
)

// WSServer is the optional diagnostics transport named in SPEC_FULL's
// domain stack: a websocket endpoint a devtools page can connect to and
// receive this runtime's diag.Event/diag.Counters stream as JSON text
// frames. It is one concrete Sink a host may register; hosts that don't
// want a network listener at all simply never construct one and subscribe
// their own Sink to the Bus instead (spec §9: "the host embeds the runtime and
// decides how to present diagnostic readouts").
type WSServer struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewWSServer creates a diagnostics websocket server. It accepts
// connections from any origin, since this is a local devtools endpoint,
// not a public API surface.
func NewWSServer() *WSServer {
	return &WSServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Handler returns the http.HandlerFunc to mount at the diagnostics
// endpoint (e.g. "/diagnostics").
func (s *WSServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("diag: websocket upgrade failed: %v", err)
			return
		}
		out := make(chan []byte, 64)
		s.mu.Lock()
		s.clients[conn] = out
		s.mu.Unlock()

		go s.writePump(conn, out)
	}
}

func (s *WSServer) writePump(conn *websocket.Conn, out <-chan []byte) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for msg := range out {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Event implements diag.Sink by fanning an event out to every connected
// client's write channel.
func (s *WSServer) Event(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.broadcast(data)
}

// Counters implements diag.Sink by fanning a counters sample out to every
// connected client.
func (s *WSServer) Counters(c Counters) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.broadcast(data)
}

func (s *WSServer) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, out := range s.clients {
		select {
		case out <- data:
		default:
			// Slow client: drop the frame rather than block the
			// simulation-thread Dispatch call that triggered this.
			log.Printf("diag: dropping frame for slow client %p", conn)
		}
	}
}

// Close shuts down every connected client's write channel.
func (s *WSServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, out := range s.clients {
		close(out)
		delete(s.clients, conn)
	}
}

// MergeEventChannels fans multiple producer channels (e.g. one per
// subsystem reporting diagnostics concurrently with the host's HTTP
// server goroutine) into one consumer channel, using channerics's
// generic channel-merge helper rather than a hand-rolled select loop.
func MergeEventChannels(done <-chan struct{}, chans ...<-chan Event) <-chan Event {
	return channerics.Merge(done, chans...)
}
