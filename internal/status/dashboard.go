// Package status serves a read-only live dashboard: browsers connect over
// WebSocket and receive a JSON roster/arbiter snapshot every time the
// reflector loop calls Broadcast. Grounded on the teacher's connection
// registry and fan-out broadcast pattern in websocket.go (gorilla/websocket
// upgrader, a mutex-protected client set, one write per client per
// broadcast). It only observes snapshots handed to it — it never reaches
// back into reflector state.
package status

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EndpointView is one roster entry as shown on the dashboard.
type EndpointView struct {
	Callsign string `json:"callsign"`
	Address  string `json:"address"`
	Country  string `json:"country,omitempty"`
}

// Snapshot is the full state pushed to every connected dashboard client.
type Snapshot struct {
	Endpoints []EndpointView `json:"endpoints"`
	ActiveTX  bool           `json:"active_tx"`
	TXSrc     string         `json:"tx_src,omitempty"`
	TXDst     string         `json:"tx_dst,omitempty"`
	TXTag     string         `json:"tx_tag,omitempty"`
	TXID      string         `json:"tx_id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dashboard tracks connected dashboard clients and broadcasts snapshots.
type Dashboard struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	server  *http.Server
}

// New returns an empty Dashboard.
func New() *Dashboard {
	return &Dashboard{clients: map[*websocket.Conn]struct{}{}}
}

// Serve starts the dashboard's HTTP server on addr, upgrading every request
// at "/ws" to a WebSocket connection.
func (d *Dashboard) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", d.handleWS)
	d.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("status: serve %s: %v", addr, err)
		}
	}()
	return nil
}

func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("status: upgrade: %v", err)
		return
	}
	d.mu.Lock()
	d.clients[conn] = struct{}{}
	d.mu.Unlock()

	// Drain and discard inbound messages; this is a push-only dashboard.
	// Exiting this loop (on read error/close) is how we notice a client
	// went away and should be dropped from the broadcast set.
	go func() {
		defer func() {
			d.mu.Lock()
			delete(d.clients, conn)
			d.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes snap to every connected dashboard client. A write
// failure drops that one client without affecting the others, the same
// sender-exclusion-independent fan-out discipline spec.md §7 requires for
// the UDP forward path.
func (d *Dashboard) Broadcast(snap Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("status: marshal snapshot: %v", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for conn := range d.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(d.clients, conn)
		}
	}
}

// Close shuts down the dashboard's HTTP server and closes all connections.
func (d *Dashboard) Close() error {
	d.mu.Lock()
	for conn := range d.clients {
		conn.Close()
	}
	d.clients = map[*websocket.Conn]struct{}{}
	d.mu.Unlock()
	if d.server == nil {
		return nil
	}
	return d.server.Close()
}
