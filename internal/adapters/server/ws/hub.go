// Package ws pushes board projections to browser canvases over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/hylla/kanmap/internal/app"
)

const (
	// writeWait bounds one write to a peer.
	writeWait = 10 * time.Second
	// pongWait bounds the gap between pongs from a peer.
	pongWait = 60 * time.Second
	// pingPeriod must stay below pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps inbound frames; clients only send pings.
	maxMessageSize = 4096
	// sendBuffer is the per-client queue depth before the client is dropped.
	sendBuffer = 16
)

// Message types written to clients.
const (
	TypeBoard = "board"
	TypePong  = "pong"
)

// Message is the envelope every frame uses.
type Message struct {
	Type string         `json:"type"`
	Kind app.ChangeKind `json:"kind,omitempty"`
	Data any            `json:"data,omitempty"`
}

// Projector renders the current board.
type Projector interface {
	Project(heights map[string]float64) app.Projection
}

// Options configures a Hub.
type Options struct {
	// AllowedOrigins lists accepted Origin headers; empty accepts any origin.
	AllowedOrigins []string
	Logger         *charmLog.Logger
}

// Hub tracks connected canvases and fans board snapshots out to them.
type Hub struct {
	board    Projector
	logger   *charmLog.Logger
	upgrader websocket.Upgrader

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	changed    chan app.ChangeKind
	done       chan struct{}
}

// NewHub constructs a new value for this package.
func NewHub(board Projector, opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = charmLog.Default()
	}
	origins := make([]string, 0, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	h := &Hub{
		board:      board,
		logger:     logger,
		clients:    map[*client]struct{}{},
		register:   make(chan *client),
		unregister: make(chan *client),
		changed:    make(chan app.ChangeKind, 1),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(origins) == 0 || origin == "" {
				return true
			}
			return slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
	return h
}

// Listener returns a change listener that schedules a broadcast. It never blocks;
// bursts of changes coalesce into one snapshot.
func (h *Hub) Listener() app.ChangeListener {
	return func(ev app.ChangeEvent) {
		h.Notify(ev.Kind)
	}
}

// Notify schedules a broadcast of the current board.
func (h *Hub) Notify(kind app.ChangeKind) {
	select {
	case h.changed <- kind:
	default:
	}
}

// Run serves registrations and broadcasts until ctx is canceled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("canvas connected", "remote", c.remote, "clients", len(h.clients))
			if frame, ok := h.snapshot(""); ok {
				h.send(c, frame)
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("canvas disconnected", "remote", c.remote, "clients", len(h.clients))
			}
		case kind := <-h.changed:
			if len(h.clients) == 0 {
				continue
			}
			frame, ok := h.snapshot(kind)
			if !ok {
				continue
			}
			for c := range h.clients {
				h.send(c, frame)
			}
		}
	}
}

// ServeHTTP upgrades one canvas connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "board feed closed", http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		pongs:  make(chan []byte, 1),
		remote: r.RemoteAddr,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) snapshot(kind app.ChangeKind) ([]byte, bool) {
	frame, err := json.Marshal(Message{Type: TypeBoard, Kind: kind, Data: h.board.Project(nil)})
	if err != nil {
		h.logger.Error("encode board snapshot failed", "err", err)
		return nil, false
	}
	return frame, true
}

// send queues frame for c, dropping c when its queue is full.
func (h *Hub) send(c *client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.logger.Warn("canvas too slow, disconnecting", "remote", c.remote)
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
