package ws

import (
	"encoding/json"
	"sync"

	"github.com/wladi27/biblioteca-virtual-backend/internal/domain"
)

// Client is one live connection with member context.
type Client struct {
	MemberID uint
	Send     chan []byte
	hub      *Hub
	mu       sync.Mutex
	closed   bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// Hub keeps one live connection per member. Registering a second connection
// for the same member pushes FORCE_LOGOUT to the old one and replaces it.
type Hub struct {
	mu       sync.RWMutex
	byMember map[uint]*Client
}

func NewHub() *Hub {
	return &Hub{byMember: make(map[uint]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	old := h.byMember[c.MemberID]
	c.hub = h
	h.byMember[c.MemberID] = c
	h.mu.Unlock()
	if old != nil {
		old.send(mustMarshal(map[string]interface{}{
			"type":    domain.EventForceLogout,
			"message": "Has iniciado sesión en otro dispositivo.",
		}))
		old.Close()
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byMember[c.MemberID] == c {
		delete(h.byMember, c.MemberID)
	}
}

// Notify implements service.NotificationSink. Delivery is best-effort: no
// connection or a full send buffer drops the event without error.
func (h *Hub) Notify(memberID uint, event string, data map[string]interface{}) {
	h.mu.RLock()
	c := h.byMember[memberID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	payload := map[string]interface{}{"type": event}
	for k, v := range data {
		payload[k] = v
	}
	c.send(mustMarshal(payload))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byMember)
}

func (c *Client) send(data []byte) {
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

func mustMarshal(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
