package websocket

import (
	"encoding/json"
)

// Service handles the messages addressed to it by name. Register is called
// once before any message is delivered.
type Service interface {
	HandleTextMessage(id string, action string, data json.RawMessage)
	Name() string
	Cleanup(err error)
	Register(conn JSONWriter)
}

// JSONWriter is the sending side of a connection.
type JSONWriter interface {
	WriteJSON(v any) error
}

type ServiceMessage struct {
	Service string          `json:"service"`
	Id      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
