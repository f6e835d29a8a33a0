package main

import (
	"log"
	"sync"
	"time"
)

// ===== notification broadcaster =====

// subscriberBuffer bounds each per-client queue; a stalled consumer loses
// its oldest events rather than blocking the publisher.
const subscriberBuffer = 64

// serverNotification is a server-initiated JSON-RPC notification. It never
// carries an id and never receives a response.
type serverNotification struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

func progressNotification(progressToken any, progress, total float64, message string) serverNotification {
	params := map[string]any{
		"progressToken": progressToken,
		"progress":      progress,
		"total":         total,
	}
	if message != "" {
		params["message"] = message
	}
	return serverNotification{JSONRPC: "2.0", Method: "notifications/progress", Params: params}
}

func logNotification(level, message string) serverNotification {
	return serverNotification{
		JSONRPC: "2.0",
		Method:  "notifications/log",
		Params: map[string]any{
			"level":     level,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func toolsListChangedNotification() serverNotification {
	return serverNotification{JSONRPC: "2.0", Method: "notifications/tools/list_changed"}
}

// broadcaster fans server events out to every live subscriber. Each
// subscriber owns its queue and events are duplicated at publish time, so
// one slow or greedy consumer never steals events from another.
type broadcaster struct {
	mu   sync.Mutex
	subs map[string]chan serverNotification
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]chan serverNotification)}
}

// subscribe registers a queue under id and returns it with a cancel func.
// Cancel is idempotent and closes the queue.
func (b *broadcaster) subscribe(id string) (<-chan serverNotification, func()) {
	ch := make(chan serverNotification, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if current, ok := b.subs[id]; ok && current == ch {
				delete(b.subs, id)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish copies the event into every live subscriber queue. When a queue
// is full its oldest event is dropped to make room.
func (b *broadcaster) publish(n serverNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
				log.Printf("<broadcast> subscriber %s lagging, dropped oldest event", id)
			default:
			}
			select {
			case ch <- n:
			default:
			}
		}
	}
}

func (b *broadcaster) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ===== connected client bookkeeping =====

type connectedClient struct {
	ID          string
	Transport   string
	RemoteAddr  string
	ConnectedAt time.Time
}

type clientSet struct {
	mu      sync.Mutex
	clients map[string]connectedClient
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[string]connectedClient)}
}

func (s *clientSet) add(c connectedClient) {
	s.mu.Lock()
	s.clients[c.ID] = c
	s.mu.Unlock()
}

func (s *clientSet) remove(id string) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

func (s *clientSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
