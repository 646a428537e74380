package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Client is one WebSocket connection subscribed to a course room.
type Client struct {
	UserID   uint
	Role     string
	CourseID uint
	Send     chan []byte
	hub      *Hub
	mu       sync.Mutex
	closed   bool
}

func NewClient(userID uint, role string, courseID uint) *Client {
	return &Client{UserID: userID, Role: role, CourseID: courseID, Send: make(chan []byte, 256)}
}

// Close unregisters the client and closes Send. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

// Event is the envelope written to forum clients.
type Event struct {
	Type     string      `json:"type"`
	CourseID uint        `json:"course_id"`
	Data     interface{} `json:"data"`
	SentAt   time.Time   `json:"sent_at"`
}

// Hub keeps one room of clients per course.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	room := h.rooms[c.CourseID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[c.CourseID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := h.rooms[c.CourseID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.CourseID)
		}
	}
}

// BroadcastToCourse sends event to every client in the course room. Clients
// whose buffer is full miss the event.
func (h *Hub) BroadcastToCourse(courseID uint, event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, CourseID: courseID, Data: payload, SentAt: time.Now().UTC()})
	if err != nil {
		slog.Error("forum event not encoded", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	room := h.rooms[courseID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.deliver(data)
	}
}

func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

func (h *Hub) RoomSize(courseID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[courseID])
}
