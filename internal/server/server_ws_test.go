package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, tsURL, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(tsURL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readWSMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws message: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode ws message: %v", err)
	}
	return body
}

func TestRoomWebsocketPushesUpdates(t *testing.T) {
	srv := New(nil, nil, testConfig(t))
	t.Cleanup(srv.Close)
	seedReferenceData(srv)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	hostToken, _ := createSession(t, ts, "Ada")
	guestToken, _ := createSession(t, ts, "Ben")
	code, _ := createRoom(t, ts, hostToken)

	conn := dialWS(t, ts.URL, "/ws/rooms/"+code)
	initial := readWSMessage(t, conn)
	if initial["type"] != "room" || initial["room_code"] != code {
		t.Fatalf("unexpected initial snapshot %v", initial)
	}
	if len(initial["participants"].([]any)) != 1 {
		t.Fatalf("expected 1 participant in initial snapshot, got %v", initial["participants"])
	}

	joinRoom(t, ts, guestToken, code)
	update := readWSMessage(t, conn)
	if len(update["participants"].([]any)) != 2 {
		t.Fatalf("expected join to push 2 participants, got %v", update["participants"])
	}
}

func TestGameWebsocketPushesReadyAndStart(t *testing.T) {
	srv := New(nil, nil, testConfig(t))
	t.Cleanup(srv.Close)
	seedReferenceData(srv)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	hostToken, _ := createSession(t, ts, "Ada")
	guestToken, _ := createSession(t, ts, "Ben")
	code, _ := createRoom(t, ts, hostToken)
	joinRoom(t, ts, guestToken, code)
	gameID := startGameHTTP(t, ts, hostToken, code, "animals")

	conn := dialWS(t, ts.URL, "/ws/games/"+gameID)
	initial := readWSMessage(t, conn)
	if initial["status"] != "waiting" {
		t.Fatalf("expected waiting snapshot, got %v", initial["status"])
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/ready", guestToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready: status %d", resp.StatusCode)
	}
	update := readWSMessage(t, conn)
	if update["status"] != "playing" {
		t.Fatalf("expected playing snapshot after quorum, got %v", update["status"])
	}
}

func TestWebsocketUnknownTargets(t *testing.T) {
	srv := New(nil, nil, testConfig(t))
	t.Cleanup(srv.Close)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	if _, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/rooms/ZZZZ9999", nil); err == nil {
		t.Fatal("expected dial to fail for unknown room")
	} else if resp != nil {
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}
}
