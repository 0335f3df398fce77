package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Respondent message types
const (
	MsgVisibilityUpdate MessageType = "visibility_update"
)

// Supervisor message types
const (
	MsgResponseStarted   MessageType = "response_started"
	MsgResponseSubmitted MessageType = "response_submitted"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Channel separates respondent sessions from supervisor feeds
type Channel string

const (
	ChannelSession    Channel = "session"
	ChannelSupervisor Channel = "supervisor"
)

type channelKey struct {
	channel Channel
	key     string // session token or form id
}

// Connection represents a WebSocket connection
type Connection struct {
	Channel Channel
	Key     string
	Send    chan []byte
	Hub     *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	Channel Channel
	Key     string
	Message *Message
	Close   bool // disconnect the key after earlier messages
}

// Hub manages WebSocket connections for response sessions and supervisor
// feeds. A key may have several connections (e.g. two browser tabs).
type Hub struct {
	conns map[channelKey]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[channelKey]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			k := channelKey{conn.Channel, conn.Key}
			if h.conns[k] == nil {
				h.conns[k] = make(map[*Connection]struct{})
			}
			h.conns[k][conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("WebSocket %s client connected (%d open)", conn.Channel, h.Count(conn.Channel, conn.Key))

		case conn := <-h.unregister:
			h.mu.Lock()
			k := channelKey{conn.Channel, conn.Key}
			if set, ok := h.conns[k]; ok {
				if _, ok := set[conn]; ok {
					delete(set, conn)
					close(conn.Send)
					if len(set) == 0 {
						delete(h.conns, k)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Close {
				k := channelKey{msg.Channel, msg.Key}
				h.mu.Lock()
				for conn := range h.conns[k] {
					close(conn.Send)
				}
				delete(h.conns, k)
				h.mu.Unlock()
				continue
			}

			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("WebSocket message encode failed: %v", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.conns[channelKey{msg.Channel, msg.Key}] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Count reports open connections for a key
func (h *Hub) Count(channel Channel, key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[channelKey{channel, key}])
}

func (h *Hub) send(channel Channel, key, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WebSocket payload encode failed: %v", err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		Channel: channel,
		Key:     key,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToSession sends a message to a respondent (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(token string, msgType string, payload interface{}) {
	h.send(ChannelSession, token, msgType, payload)
}

// BroadcastToSupervisors sends a message to everyone watching a form (implements service.Broadcaster)
func (h *Hub) BroadcastToSupervisors(formID string, msgType string, payload interface{}) {
	h.send(ChannelSupervisor, formID, msgType, payload)
}

// CloseSession disconnects a respondent after submission (implements service.Broadcaster)
func (h *Hub) CloseSession(token string) {
	h.broadcast <- &BroadcastMessage{Channel: ChannelSession, Key: token, Close: true}
}
