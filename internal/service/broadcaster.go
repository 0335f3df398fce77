package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(token string, msgType string, payload interface{})
	BroadcastToSupervisors(formID string, msgType string, payload interface{})
	CloseSession(token string)
}

// Event types pushed over WebSocket
const (
	EventVisibilityUpdate  = "visibility_update"
	EventResponseStarted   = "response_started"
	EventResponseSubmitted = "response_submitted"
)
