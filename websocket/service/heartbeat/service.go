package heartbeat

import (
	"encoding/json"
	"time"

	ws "pinas/websocket"
)

type pongData struct {
	Time int64 `json:"time"`
}

// HeartbeatService echoes pings with the server time. It is registered
// passively, so heartbeats alone do not keep an idle session open.
type HeartbeatService struct {
	conn ws.JSONWriter
	now  func() time.Time
}

func NewService() ws.Service {
	return &HeartbeatService{now: time.Now}
}

func (s *HeartbeatService) Name() string {
	return "heartbeat"
}

func (s *HeartbeatService) Register(conn ws.JSONWriter) {
	s.conn = conn
}

func (s *HeartbeatService) HandleTextMessage(id, action string, data json.RawMessage) {
	payload, _ := json.Marshal(pongData{Time: s.now().UnixMilli()})
	s.conn.WriteJSON(&ws.ServiceMessage{Service: s.Name(), Action: action, Id: id, Data: payload})
}

func (s *HeartbeatService) Cleanup(err error) {}
