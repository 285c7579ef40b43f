package api_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, httpURL, battleID string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(httpURL, "http://", "ws://", 1) + "/battles/" + battleID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessageOfType(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("unmarshal %q: %v", payload, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
	t.Fatalf("no %q message before deadline", want)
	return nil
}

func TestWebSocketInitAndClicks(t *testing.T) {
	ts := newTestServer(t)
	battleID, participantID := createBattle(t, ts, "alice")

	conn := dialWS(t, ts.URL, battleID)

	// The full snapshot arrives before any delta.
	initMsg := readMessageOfType(t, conn, "init")
	snapshot, ok := initMsg["snapshot"].(map[string]any)
	if !ok || snapshot["battleId"] != battleID {
		t.Fatalf("unexpected init message: %+v", initMsg)
	}

	// A click action flows back as a click_update delta.
	err := conn.WriteJSON(map[string]any{
		"action":        "click",
		"participantId": participantID,
		"clickDelta":    2,
	})
	if err != nil {
		t.Fatalf("write click: %v", err)
	}
	update := readMessageOfType(t, conn, "click_update")
	if update["participantId"] != participantID || update["clickDelta"] != float64(2) {
		t.Errorf("unexpected click_update: %+v", update)
	}

	// Application-level ping gets a pong.
	if err := conn.WriteJSON(map[string]any{"action": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readMessageOfType(t, conn, "pong")
}

func TestWebSocketFanOut(t *testing.T) {
	ts := newTestServer(t)
	battleID, participantID := createBattle(t, ts, "alice")

	viewer1 := dialWS(t, ts.URL, battleID)
	viewer2 := dialWS(t, ts.URL, battleID)
	readMessageOfType(t, viewer1, "init")
	readMessageOfType(t, viewer2, "init")

	// One viewer clicks; both see the delta.
	err := viewer1.WriteJSON(map[string]any{
		"action":        "click",
		"participantId": participantID,
		"clickDelta":    1,
	})
	if err != nil {
		t.Fatalf("write click: %v", err)
	}
	readMessageOfType(t, viewer1, "click_update")
	readMessageOfType(t, viewer2, "click_update")
}

func TestWebSocketUnknownBattle(t *testing.T) {
	ts := newTestServer(t)

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/battles/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 handshake response, got %+v", resp)
	}
}
