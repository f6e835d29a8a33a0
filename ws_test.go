package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestSocket(t *testing.T, gw *Gateway) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(buildHTTPMux(gw))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketRequestResponse(t *testing.T) {
	gw := testGateway()
	conn := dialTestSocket(t, gw)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if resp.Error != nil {
		t.Fatalf("ping over ws failed: %+v", resp.Error)
	}
}

func TestWebSocketNotificationSuppressed(t *testing.T) {
	gw := testGateway()
	conn := dialTestSocket(t, gw)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)); err != nil {
		t.Fatalf("write notification: %v", err)
	}
	// a follow-up request must get the next frame, not a notification reply
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":7,"method":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := resp.ID.(float64); !ok || got != 7 {
		t.Fatalf("expected reply to id 7, got %v", resp.ID)
	}
}

func TestWebSocketParseErrorStillAnswered(t *testing.T) {
	gw := testGateway()
	conn := dialTestSocket(t, gw)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{broken`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp)
	}
}

func TestWebSocketClientTracked(t *testing.T) {
	gw := testGateway()
	conn := dialTestSocket(t, gw)

	deadline := time.Now().Add(2 * time.Second)
	for gw.clients.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()
	for gw.clients.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never deregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
