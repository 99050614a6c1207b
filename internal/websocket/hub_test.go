package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorflow/internal/batch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func dial(t *testing.T, srv *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(Handler(hub, nil, quietLogger()))
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "")
	hello := readMessage(t, conn)
	assert.Equal(t, TypeConnection, hello.Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(batch.Event{Type: batch.EventSectorFinished, RunID: "run-7", Sector: "DJ_PCB", Total: 3, Completed: 1})

	msg := readMessage(t, conn)
	assert.Equal(t, string(batch.EventSectorFinished), msg.Type)
	assert.Equal(t, "run-7", msg.RunID)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DJ_PCB", data["sector"])
	assert.Equal(t, float64(1), data["completed"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerOrigins(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(Handler(hub, []string{"http://allowed.example"}, quietLogger()))
	t.Cleanup(srv.Close)

	dial(t, srv, "http://allowed.example")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubStop(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.Start()
	hub.Start()

	srv := httptest.NewServer(Handler(hub, nil, quietLogger()))
	t.Cleanup(srv.Close)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()
	assert.Zero(t, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "the server closes the connection")

	// publishing after stop never blocks
	for i := 0; i < 300; i++ {
		hub.Broadcast("noop", nil, "")
	}
}
