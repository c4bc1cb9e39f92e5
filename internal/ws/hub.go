package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"push-service/internal/logging"
	"push-service/internal/models"
)

// maxConnsPerUser caps how many live sockets one user may hold.
const maxConnsPerUser = 10

// Hub manages WebSocket connections per user and pushes delivery status
// updates to them as dispatches complete.
type Hub struct {
	connections map[int]map[*websocket.Conn]bool
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[int]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// StatusUpdate is the message sent to a user's open connections after a
// dispatch attempt for them completes.
type StatusUpdate struct {
	Title  string                  `json:"title"`
	Type   models.NotificationType `json:"type"`
	Result models.DispatchResult   `json:"result"`
}

// AddConnection registers a connection for a user, up to the per-user cap.
func (h *Hub) AddConnection(userID int, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[userID]; !exists {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnsPerUser {
		h.logger.Warnf("Max connections reached for user %d", userID)
		return
	}
	h.connections[userID][conn] = true
	h.logger.Infof("Added WebSocket connection for user %d (total: %d)", userID, len(h.connections[userID]))
}

// RemoveConnection drops a connection for a user.
func (h *Hub) RemoveConnection(userID int, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, exists := h.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
		h.logger.Infof("Removed WebSocket connection for user %d (remaining: %d)", userID, len(conns))
	}
}

// SendToUser pushes a status update to all of a user's connections, dropping
// any connection that fails to write.
func (h *Hub) SendToUser(userID int, update StatusUpdate) {
	message, err := json.Marshal(update)
	if err != nil {
		h.logger.Errorf("Failed to marshal status update for user %d: %v", userID, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns, exists := h.connections[userID]
	if !exists {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send WebSocket message to user %d: %v", userID, err)
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
}
