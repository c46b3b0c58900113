package ws

import (
	"sync"

	"go.uber.org/zap"
)

// RoomMessage is a message for every client of one document.
type RoomMessage struct {
	Room    string
	Payload []byte
}

// Hub maintains the set of active Clients and broadcasts messages to the
// Clients of a room.
type Hub struct {
	// Registered Clients.
	Clients        map[*Client]bool
	ClientsRWMutex sync.RWMutex

	// Outbound messages for a room.
	Broadcast chan RoomMessage

	// Register requests from the Clients.
	Register chan *Client

	// Unregister requests from Clients.
	Unregister chan *Client

	done   chan struct{}
	once   sync.Once
	logger *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		Broadcast:  make(chan RoomMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.ClientsRWMutex.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				client.close()
			}
			h.ClientsRWMutex.Unlock()
			return
		case client := <-h.Register:
			if client == nil {
				continue
			}
			h.ClientsRWMutex.Lock()
			h.Clients[client] = true
			h.ClientsRWMutex.Unlock()
		case client := <-h.Unregister:
			if client == nil {
				continue
			}
			h.ClientsRWMutex.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.close()
			}
			h.ClientsRWMutex.Unlock()
		case message := <-h.Broadcast:
			h.ClientsRWMutex.Lock()
			for client := range h.Clients {
				if client == nil || client.Room != message.Room {
					continue
				}
				if !client.trySend(message.Payload) {
					h.logger.Warnw("removing client with full send buffer", "room", client.Room, "session", client.SessionId)
					delete(h.Clients, client)
					client.close()
				}
			}
			h.ClientsRWMutex.Unlock()
		}
	}
}

// Publish queues payload for the clients of room. It returns false once the
// hub is stopped.
func (h *Hub) Publish(room string, payload []byte) bool {
	select {
	case h.Broadcast <- RoomMessage{Room: room, Payload: payload}:
		return true
	case <-h.done:
		return false
	}
}

// ClientsInRoom counts the connected clients of room.
func (h *Hub) ClientsInRoom(room string) int {
	h.ClientsRWMutex.RLock()
	defer h.ClientsRWMutex.RUnlock()
	count := 0
	for client := range h.Clients {
		if client.Room == room {
			count++
		}
	}
	return count
}

// ClientCount counts all connected clients.
func (h *Hub) ClientCount() int {
	h.ClientsRWMutex.RLock()
	defer h.ClientsRWMutex.RUnlock()
	return len(h.Clients)
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
