package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"formgate/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// OperatorAuth validates operator tokens passed as ?token=
type OperatorAuth interface {
	ValidateOperatorToken(token string) (*model.OperatorClaims, error)
}

// SessionLookup resolves respondent session tokens
type SessionLookup interface {
	Get(ctx context.Context, token string) (*model.Response, error)
}

// Handler handles WebSocket connections
type Handler struct {
	hub       *Hub
	authSvc   OperatorAuth
	responses SessionLookup
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc OperatorAuth, responses SessionLookup) *Handler {
	return &Handler{
		hub:       hub,
		authSvc:   authSvc,
		responses: responses,
	}
}

// SessionWS handles GET /v1/ws/responses/{token}
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	resp, err := h.responses.Get(r.Context(), token)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if resp.Submitted {
		http.Error(w, "response already submitted", http.StatusConflict)
		return
	}

	h.serve(w, r, ChannelSession, token)
}

// SupervisorWS handles GET /v1/ws/forms/{formId}/supervisor
func (h *Handler) SupervisorWS(w http.ResponseWriter, r *http.Request) {
	formID := mux.Vars(r)["formId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateOperatorToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	log.Printf("Operator %s watching form %s", claims.OperatorID, formID)
	h.serve(w, r, ChannelSupervisor, formID)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, channel Channel, key string) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		Channel: channel,
		Key:     key,
		Send:    make(chan []byte, 256),
		Hub:     h.hub,
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		// clients only listen
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
