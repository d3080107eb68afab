package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"draw-guess/internal/config"
	"draw-guess/internal/game"
	"draw-guess/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPNGData = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMBAp4pWZkAAAAASUVORK5CYII="

func testPNG(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(testPNGData, "data:image/png;base64,"))
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

type testApp struct {
	ts     *httptest.Server
	svc    *game.Service
	images *storage.Memory
}

func newTestApp(t *testing.T, tweak func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Default()
	if tweak != nil {
		tweak(&cfg)
	}
	return startApp(t, cfg, 0)
}

func newTestAppWithGrace(t *testing.T, grace time.Duration) *testApp {
	t.Helper()
	return startApp(t, config.Default(), grace)
}

func startApp(t *testing.T, cfg config.Config, grace time.Duration) *testApp {
	t.Helper()
	images := storage.NewMemory(time.Hour)
	svc := game.NewService(game.Options{
		Images:         images,
		Logger:         zap.NewNop(),
		ReconnectGrace: grace,
	})
	srv := New(svc, images, cfg, zap.NewNop())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
	})
	return &testApp{ts: ts, svc: svc, images: images}
}

func (a *testApp) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(a.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(a.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testApp) upload(t *testing.T, roomID string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if roomID != "" {
		require.NoError(t, writer.WriteField("roomId", roomID))
	}
	if data != nil {
		part, err := writer.CreateFormFile("file", "drawing.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	resp, err := http.Post(a.ts.URL+"/api/upload", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func send(t *testing.T, conn *websocket.Conn, payload map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(payload))
}

// readEvent reads until a message of the given kind arrives, skipping
// anything else.
func readEvent(t *testing.T, conn *websocket.Conn, event string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(payload, &msg))
		if msg["event"] == event {
			return msg
		}
	}
}

type seat struct {
	conn     *websocket.Conn
	roomID   string
	playerID string
}

func (a *testApp) createRoom(t *testing.T, nickname string, rounds int) seat {
	t.Helper()
	conn := a.dial(t)
	send(t, conn, map[string]any{
		"event":       "create_room",
		"password":    "secret",
		"maxPlayers":  4,
		"totalRounds": rounds,
		"nickname":    nickname,
	})
	msg := readEvent(t, conn, game.EventRoomCreated)
	return seat{conn: conn, roomID: msg["roomId"].(string), playerID: msg["playerId"].(string)}
}

func (a *testApp) joinRoom(t *testing.T, roomID, nickname string) seat {
	t.Helper()
	conn := a.dial(t)
	send(t, conn, map[string]any{
		"event":    "join_room",
		"roomId":   roomID,
		"password": "secret",
		"nickname": nickname,
	})
	msg := readEvent(t, conn, game.EventRoomJoined)
	return seat{conn: conn, roomID: roomID, playerID: msg["playerId"].(string)}
}

func (s seat) send(t *testing.T, event string, fields map[string]any) {
	t.Helper()
	payload := map[string]any{
		"event":    event,
		"roomId":   s.roomID,
		"playerId": s.playerID,
	}
	for k, v := range fields {
		payload[k] = v
	}
	send(t, s.conn, payload)
}
