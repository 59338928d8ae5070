package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Per-client outbound queue.
	sendBuffer = 256
)

// Events pushed to clients.
const (
	EventStateUpdate = "state_update"
	EventMapChange   = "map_change"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Source supplies the change streams the hub forwards. EditorService
// satisfies it.
type Source interface {
	SubscribeSession(ctx context.Context, sessionID string, fn controller.Listener) (func(), error)
	SubscribeMap(mapID string, fn func(service.MapEvent)) func()
}

type topicKind string

const (
	topicSession topicKind = "session"
	topicMap     topicKind = "map"
)

// topic identifies the stream a client listens to.
type topic struct {
	kind topicKind
	id   string
}

func (t topic) String() string {
	return string(t.kind) + ":" + t.id
}

// Message represents a WebSocket message
type Message struct {
	SessionID string            `json:"session_id,omitempty"`
	MapID     string            `json:"map_id,omitempty"`
	Event     string            `json:"event"`
	State     *controller.State `json:"state,omitempty"`
	Change    *service.MapEvent `json:"change,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

func (m *Message) topic() topic {
	if m.SessionID != "" {
		return topic{kind: topicSession, id: m.SessionID}
	}
	return topic{kind: topicMap, id: m.MapID}
}

// Client represents a WebSocket client
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic topic
}

// Hub maintains the set of active clients per session or map and forwards
// the matching change stream to them.
type Hub struct {
	source Source

	// Registered clients by topic
	topics map[topic]map[*Client]bool

	// Unsubscribe funcs of the source streams, one per topic with clients
	subs map[topic]func()

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a new WebSocket hub. A nil source makes the hub forward
// only what is broadcast explicitly.
func NewHub(source Source) *Hub {
	return &Hub{
		source:     source,
		topics:     make(map[topic]map[*Client]bool),
		subs:       make(map[topic]func()),
		broadcast:  make(chan *Message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// dropping every client and subscription.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			return
		}
	}
}

// ServeSession upgrades the request and streams controller state of a session
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	h.serve(w, r, topic{kind: topicSession, id: sessionID})
}

// ServeMap upgrades the request and streams change events of a map
func (h *Hub) ServeMap(w http.ResponseWriter, r *http.Request, mapID string) {
	h.serve(w, r, topic{kind: topicMap, id: mapID})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, t topic) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		topic: t,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastState sends a controller snapshot to all clients of a session
func (h *Hub) BroadcastState(sessionID string, state controller.State) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventStateUpdate, State: &state})
}

// BroadcastMapEvent sends a change event to all clients of its map
func (h *Hub) BroadcastMapEvent(ev service.MapEvent) {
	h.enqueue(&Message{MapID: ev.MapID, Event: EventMapChange, Change: &ev})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	}
}

// subscribe opens the source stream for a topic
func (h *Hub) subscribe(t topic) (func(), error) {
	if h.source == nil {
		return func() {}, nil
	}
	switch t.kind {
	case topicSession:
		return h.source.SubscribeSession(context.Background(), t.id, func(state controller.State) {
			h.BroadcastState(t.id, state)
		})
	default:
		return h.source.SubscribeMap(t.id, func(ev service.MapEvent) {
			log.Printf("[WS] %s", ev)
			h.BroadcastMapEvent(ev)
		}), nil
	}
}

// registerClient adds a client to its topic, subscribing on the first one
func (h *Hub) registerClient(client *Client) {
	if _, ok := h.subs[client.topic]; !ok {
		unsub, err := h.subscribe(client.topic)
		if err != nil {
			log.Printf("Warning: cannot subscribe %s: %v", client.topic, err)
			close(client.send)
			return
		}
		h.subs[client.topic] = unsub
	}

	if h.topics[client.topic] == nil {
		h.topics[client.topic] = make(map[*Client]bool)
	}
	h.topics[client.topic][client] = true

	log.Printf("Client registered for %s (total clients: %d)",
		client.topic, len(h.topics[client.topic]))
}

// unregisterClient removes a client, unsubscribing after the last one
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.topics, client.topic)
		if unsub, ok := h.subs[client.topic]; ok {
			unsub()
			delete(h.subs, client.topic)
		}
	}

	log.Printf("Client unregistered from %s (remaining clients: %d)",
		client.topic, len(clients))
}

// broadcastMessage sends a message to all clients of its topic
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	for client := range h.topics[message.topic()] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for t, clients := range h.topics {
		for client := range clients {
			close(client.send)
		}
		delete(h.topics, t)
	}
	for t, unsub := range h.subs {
		unsub()
		delete(h.subs, t)
	}
}

// readPump drains the connection so pongs and close frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
