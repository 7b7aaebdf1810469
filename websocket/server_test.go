package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoService answers every message with its own action and data.
type echoService struct {
	conn JSONWriter

	mu       sync.Mutex
	cleanups []error
}

func (s *echoService) Name() string { return "echo" }

func (s *echoService) Register(conn JSONWriter) { s.conn = conn }

func (s *echoService) HandleTextMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&ServiceMessage{Service: s.Name(), Id: id, Action: action, Data: data})
}

func (s *echoService) Cleanup(err error) {
	s.mu.Lock()
	s.cleanups = append(s.cleanups, err)
	s.mu.Unlock()
}

func (s *echoService) cleanedUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cleanups) > 0
}

func newTestWSConn(t *testing.T, timeout, interval time.Duration, svc Service) *ws.Conn {
	t.Helper()

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server, err := NewServer(w, r, timeout, zerolog.Nop())
		if err != nil {
			return
		}
		server.checkInterval = interval
		server.Register(svc)
		server.Start()
	}))
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerDispatch(t *testing.T) {
	svc := &echoService{}
	conn := newTestWSConn(t, time.Minute, time.Second, svc)

	require.NoError(t, conn.WriteJSON(ServiceMessage{Service: "echo", Id: "1", Action: "ping", Data: json.RawMessage(`{"n":1}`)}))

	var reply ServiceMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "echo", reply.Service)
	assert.Equal(t, "1", reply.Id)
	assert.Equal(t, "ping", reply.Action)
	assert.JSONEq(t, `{"n":1}`, string(reply.Data))

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(ServiceMessage{Service: "missing", Id: "2", Action: "x"}))

	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "2", reply.Id)
	assert.Equal(t, "unknown service", reply.Error)
}

func TestServerCleansUpOnClose(t *testing.T) {
	svc := &echoService{}
	conn := newTestWSConn(t, time.Minute, time.Second, svc)

	require.NoError(t, conn.Close())
	assert.Eventually(t, svc.cleanedUp, 2*time.Second, 10*time.Millisecond)
}

func TestServerClosesIdleSession(t *testing.T) {
	svc := &echoService{}
	conn := newTestWSConn(t, 50*time.Millisecond, 10*time.Millisecond, svc)

	started := time.Now()
	require.NoError(t, conn.SetReadDeadline(started.Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Eventually(t, svc.cleanedUp, 2*time.Second, 10*time.Millisecond)
}
