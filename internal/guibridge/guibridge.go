// Package guibridge is the concrete shape of the optional "GUI shell"
// external collaborator (SPEC_FULL.md §6): a websocket server the
// statement driver can push PRINT output and statistics snapshots to.
// It has no bearing on evaluation semantics — it is a pure observer,
// enabled by a CLI flag and otherwise entirely absent from the
// evaluation path.
package guibridge

import (
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Bridge fans a single stream of text messages out to every currently
// connected GUI client. Connections may come and go at any time; a
// client that can't keep up is dropped rather than allowed to block the
// interpreter (spec.md §5: the interpreter itself never yields).
type Bridge struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan string
}

// New constructs an idle bridge; call Handler to get an http.Handler to
// mount, and Broadcast to push a line to every attached client.
func New() *Bridge {
	return &Bridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan string),
	}
}

// Handler upgrades incoming HTTP connections to websockets and registers
// them as broadcast recipients until they disconnect.
func (b *Bridge) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		out := make(chan string, 64)
		b.mu.Lock()
		b.clients[conn] = out
		b.mu.Unlock()

		defer func() {
			b.mu.Lock()
			delete(b.clients, conn)
			b.mu.Unlock()
			conn.Close()
		}()

		for msg := range out {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}
}

// Broadcast pushes msg to every connected client, non-blocking: a
// client whose outbound buffer is full is dropped rather than stalling
// the caller.
func (b *Bridge) Broadcast(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn, out := range b.clients {
		select {
		case out <- msg:
		default:
			close(out)
			delete(b.clients, conn)
		}
	}
}

// ListenAndServe mounts the websocket handler at /ws and blocks serving
// HTTP on addr. Callers typically run this in its own goroutine.
func (b *Bridge) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.Handler())
	return http.ListenAndServe(addr, mux)
}

// writer is an io.Writer that tees every write to an underlying writer
// (the real stdout) and broadcasts the same bytes to the bridge, so
// PRINT output reaches an attached GUI shell without the evaluator
// itself knowing the bridge exists (spec.md §6: a pure observer).
type writer struct {
	bridge     *Bridge
	underlying io.Writer
}

// NewWriter wraps underlying so every write is also broadcast to b.
func NewWriter(b *Bridge, underlying io.Writer) io.Writer {
	return &writer{bridge: b, underlying: underlying}
}

func (w *writer) Write(p []byte) (int, error) {
	w.bridge.Broadcast(string(p))
	return w.underlying.Write(p)
}
