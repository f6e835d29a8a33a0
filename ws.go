package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ===== WebSocket transport =====

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// same posture as the HTTP endpoints: CORS is wide open
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket speaks the same protocol as /message, one JSON-RPC
// envelope per text frame. Requests on a connection are handled serially;
// notifications produce no reply frame. Broadcast events are pushed over
// the same socket between replies.
func (gw *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("<ws> upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	gw.clients.add(connectedClient{
		ID:          clientID,
		Transport:   "websocket",
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now().UTC(),
	})
	defer gw.clients.remove(clientID)

	log.Printf("<ws> client %s connected", clientID)
	defer log.Printf("<ws> client %s disconnected", clientID)

	// gorilla permits one concurrent writer per connection
	var writeMu sync.Mutex
	writeFrame := func(payload any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(payload)
	}

	events, cancel := gw.broadcast.subscribe(clientID)
	defer cancel()
	go func() {
		for event := range events {
			if err := writeFrame(event); err != nil {
				return
			}
		}
	}()

	authToken := bearerToken(r)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("<ws> client %s read error: %v", clientID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req, parseFailure := parseRequest(data)
		if parseFailure != nil {
			if err := writeFrame(parseFailure); err != nil {
				return
			}
			continue
		}

		token := authToken
		if paramsToken := extractParamsToken(req); token == "" {
			token = paramsToken
		}

		resp := gw.dispatchWithBudget(r.Context(), req, token)
		if resp == nil {
			continue
		}
		if err := writeFrame(resp); err != nil {
			return
		}
	}
}
