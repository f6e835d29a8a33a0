package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

// ===== infra helpers =====

type MiddlewareFunc func(http.Handler) http.Handler

func chainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

func loggerMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("<%s> %s %s", prefix, r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Printf("<%s> panic: %v", prefix, err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken pulls the advisory token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ===== message endpoint =====

func (gw *Gateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	body := strings.TrimSpace(string(raw))
	if body == "" {
		writeJSON(w, http.StatusOK, rpcError(nil, codeParseError, "Empty request body"))
		return
	}

	// batch envelopes are declined per entry rather than processed
	if body[0] == '[' {
		var batch []jsonrpcRequest
		if err := json.Unmarshal([]byte(body), &batch); err != nil {
			writeJSON(w, http.StatusOK, rpcError(nil, codeParseError, "Parse error: "+err.Error()))
			return
		}
		out := make([]*jsonrpcResponse, 0, len(batch))
		for i := range batch {
			if batch[i].isNotification() {
				continue
			}
			out = append(out, rpcError(batch[i].ID, codeMethodNotFound, "Batch requests are not supported"))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	req, parseFailure := parseRequest([]byte(body))
	if parseFailure != nil {
		writeJSON(w, http.StatusOK, parseFailure)
		return
	}

	// header token wins; the out-of-band params field is the fallback and
	// is stripped before dispatch either way
	paramsToken := extractParamsToken(req)
	authToken := bearerToken(r)
	if authToken == "" {
		authToken = paramsToken
	}

	resp := gw.dispatchWithBudget(r.Context(), req, authToken)
	if resp == nil {
		// notification: zero response bytes, under any circumstance
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// extractParamsToken strips the out-of-band auth_token field from params and
// returns its value. Tool handlers must never see it.
func extractParamsToken(req *jsonrpcRequest) string {
	if req == nil || len(req.Params) == 0 {
		return ""
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ""
	}
	raw, ok := params["auth_token"]
	if !ok {
		return ""
	}
	var token string
	_ = json.Unmarshal(raw, &token)
	delete(params, "auth_token")
	if rebuilt, err := json.Marshal(params); err == nil {
		req.Params = rebuilt
	}
	return token
}

// ===== SSE transport =====

// handleSSE serves the one-way event stream: broadcaster events framed as
// data blocks, with a keepalive ping whenever the stream goes idle past the
// keepalive window. Per-request replies never travel here.
func (gw *Gateway) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := uuid.New().String()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Mcp-Session-Id", clientID)

	gw.clients.add(connectedClient{
		ID:          clientID,
		Transport:   "sse",
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now().UTC(),
	})
	defer gw.clients.remove(clientID)

	events, cancel := gw.broadcast.subscribe(clientID)
	defer cancel()

	log.Printf("<sse> client %s connected", clientID)
	defer log.Printf("<sse> client %s disconnected", clientID)

	// initial ping so intermediaries commit the stream right away
	if !writeSSEEvent(w, flusher, serverNotification{JSONRPC: "2.0", Method: "ping"}) {
		return
	}

	keepalive := gw.config.Server.keepalive()
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !writeSSEEvent(w, flusher, event) {
				return
			}
			ticker.Reset(keepalive)
		case <-ticker.C:
			if !writeSSEEvent(w, flusher, serverNotification{JSONRPC: "2.0", Method: "ping"}) {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event serverNotification) bool {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("<sse> marshal event: %v", err)
		return true
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// ===== discovery & health =====

func (gw *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"server":  gw.config.Server.Name,
		"version": gw.config.Server.Version,
		"tools":   gw.registry.size(),
		"clients": gw.clients.count(),
	})
}

func (gw *Gateway) handleManifest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gw.buildManifestDocument())
}

// ===== server lifecycle =====

func buildHTTPMux(gw *Gateway) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", gw.handleMessage)
	mux.HandleFunc("/sse", gw.handleSSE)
	mux.HandleFunc("/ws", gw.handleWebSocket)
	mux.HandleFunc("/health", gw.handleHealth)
	mux.HandleFunc("/", gw.handleHealth)
	mux.HandleFunc("/.well-known/mcp/manifest.json", gw.handleManifest)
	registerOAuthRoutes(mux, gw)

	mws := []MiddlewareFunc{recoverMiddleware("http")}
	if gw.config.Server.LogEnabled.OrElse(false) {
		mws = append(mws, loggerMiddleware("http"))
	}
	handler := chainMiddleware(mux, mws...)
	return cors.AllowAll().Handler(handler)
}

func startHTTPServer(ctx context.Context, gw *Gateway) error {
	httpServer := &http.Server{
		Addr:    gw.config.Server.Addr,
		Handler: buildHTTPMux(gw),
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var eg errgroup.Group
	eg.Go(func() error {
		log.Printf("<http> %s v%s listening on %s", gw.config.Server.Name, gw.config.Server.Version, httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-sigCtx.Done()
		log.Println("<http> shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return eg.Wait()
}
