package ws

import (
	"encoding/json"
	"sync"

	"zonelight-agent/internal/model"

	"github.com/gorilla/websocket"
)

// HardwareHub is the device-apply boundary: one connection per hardware
// client, keyed by device category. Pushes are fire-and-forget; a client
// whose send buffer is full gets dropped rather than blocking the caller.
type HardwareHub struct {
	mu      sync.RWMutex
	clients map[model.DeviceCategory]map[*Client]struct{}
}

func NewHardwareHub() *HardwareHub {
	return &HardwareHub{clients: map[model.DeviceCategory]map[*Client]struct{}{}}
}

func (h *HardwareHub) Register(category model.DeviceCategory, conn *websocket.Conn) *Client {
	var c *Client
	c = NewClientWithClose(conn, func() { h.Unregister(category, c) })
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[category]; !ok {
		h.clients[category] = map[*Client]struct{}{}
	}
	h.clients[category][c] = struct{}{}
	return c
}

func (h *HardwareHub) Unregister(category model.DeviceCategory, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.clients[category]; ok {
		if _, exist := m[c]; exist {
			delete(m, c)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.clients, category)
		}
	}
}

func (h *HardwareHub) Connected(category model.DeviceCategory) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[category]) > 0
}

func (h *HardwareHub) PushEnvelope(env model.DeviceEnvelope) {
	b, err := json.Marshal(map[string]interface{}{
		"type":       "device.envelope",
		"created_at": env.CreatedAt,
		"payload":    env,
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := h.clients[env.Category]
	h.mu.RUnlock()
	for c := range clients {
		select {
		case c.send <- b:
		default:
			h.Unregister(env.Category, c)
		}
	}
}
