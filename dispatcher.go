package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// ===== gateway =====

// Gateway is the server context shared by every transport adapter: the tool
// registry, the usage ledger, the notification broadcaster, and the
// connected-client set. Constructing it explicitly (instead of package
// globals) keeps the gateway instantiable for isolated tests.
type Gateway struct {
	config    *Config
	creds     *apiCredentials
	registry  *toolRegistry
	ledger    *usageLedger
	broadcast *broadcaster
	clients   *clientSet

	overrideMu sync.RWMutex
	overrides  map[string]*ToolOverrideConfig

	tokenSet map[string]struct{}
}

func newGateway(config *Config, creds *apiCredentials) *Gateway {
	if config == nil {
		config = defaultConfig()
	}
	if creds == nil {
		creds = &apiCredentials{}
	}
	ledger := newUsageLedger(ledgerCapacity)
	deps := &toolDeps{
		client: newAPIClient(),
		ledger: ledger,
		creds:  creds,
	}
	gw := &Gateway{
		config:    config,
		creds:     creds,
		registry:  newToolRegistry(deps),
		ledger:    ledger,
		broadcast: newBroadcaster(),
		clients:   newClientSet(),
		overrides: config.Tools,
		tokenSet:  make(map[string]struct{}),
	}
	for _, token := range config.Server.AuthTokens {
		gw.tokenSet[token] = struct{}{}
	}
	if records := loadUsageState(config.Server.usageStatePath()); len(records) > 0 {
		ledger.restore(records)
	}
	return gw
}

// authenticated reports whether a presented bearer token should flip the
// advisory flag. Nothing is gated on the result.
func (gw *Gateway) authenticated(token string) bool {
	if token == "" {
		return false
	}
	if len(gw.tokenSet) == 0 {
		return true
	}
	_, ok := gw.tokenSet[token]
	return ok
}

func (gw *Gateway) overrideSnapshot() map[string]*ToolOverrideConfig {
	gw.overrideMu.RLock()
	defer gw.overrideMu.RUnlock()
	return gw.overrides
}

// reloadOverrides swaps the override set and tells every streaming client
// that the tool list changed.
func (gw *Gateway) reloadOverrides(overrides map[string]*ToolOverrideConfig) {
	gw.overrideMu.Lock()
	gw.overrides = overrides
	gw.overrideMu.Unlock()
	gw.broadcast.publish(toolsListChangedNotification())
}

// ===== dispatch =====

// methodBudget picks the wall-clock budget for a method class: short for
// metadata methods, long for tool calls.
func (gw *Gateway) methodBudget(method string) time.Duration {
	if method == "tools/call" {
		return gw.config.Server.callBudget()
	}
	return gw.config.Server.metadataBudget()
}

// dispatchWithBudget runs Dispatch under the method-class deadline. On
// expiry the caller gets a timeout error while the handler's context is
// cancelled, so its outbound HTTP call aborts instead of running on in the
// background.
func (gw *Gateway) dispatchWithBudget(ctx context.Context, req *jsonrpcRequest, authToken string) *jsonrpcResponse {
	if req == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, gw.methodBudget(req.Method))
	defer cancel()

	done := make(chan *jsonrpcResponse, 1)
	go func() {
		done <- gw.Dispatch(callCtx, req, authToken)
	}()

	select {
	case resp := <-done:
		return resp
	case <-callCtx.Done():
		if req.isNotification() {
			return nil
		}
		return rpcError(req.ID, codeRequestTimeout, "Request timed out: "+req.Method)
	}
}

// parseRequest decodes one envelope. On malformed input it returns a parse
// error response the transport may or may not write, depending on its own
// rules (HTTP responds, stdio logs and skips).
func parseRequest(data []byte) (*jsonrpcRequest, *jsonrpcResponse) {
	var req jsonrpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, rpcError(nil, codeParseError, "Parse error: "+err.Error())
	}
	return &req, nil
}

// Dispatch routes one request. A nil return means "write nothing back":
// the request was a notification, and that holds even when handling
// panics. All handler panics stop here; a single bad call must never take
// the process down.
func (gw *Gateway) Dispatch(ctx context.Context, req *jsonrpcRequest, authToken string) (resp *jsonrpcResponse) {
	if req == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("<dispatch> panic in %s: %v", req.Method, r)
			if req.isNotification() {
				resp = nil
				return
			}
			resp = rpcInternalError(req.ID, fmt.Sprintf("Internal error: %v", r))
		}
	}()

	if req.isNotification() {
		gw.handleNotificationRequest(req)
		return nil
	}

	switch req.Method {
	case "initialize":
		return rpcOK(req.ID, gw.buildInitializeResult(gw.authenticated(authToken)))
	case "ping":
		return rpcOK(req.ID, map[string]any{})
	case "tools/list":
		return rpcOK(req.ID, map[string]any{"tools": gw.collectTools()})
	case "tools/call":
		return gw.dispatchToolCall(ctx, req)
	case "resources/list":
		return rpcOK(req.ID, map[string]any{"resources": gw.collectResources()})
	case "resources/read":
		return gw.dispatchResourceRead(req)
	case "prompts/list":
		return rpcOK(req.ID, map[string]any{"prompts": []any{}})
	default:
		return rpcError(req.ID, codeMethodNotFound, "Unknown method: "+req.Method)
	}
}

// handleNotificationRequest processes client notifications for their side
// effects only. Errors are swallowed: no id, no reply, ever.
func (gw *Gateway) handleNotificationRequest(req *jsonrpcRequest) {
	switch req.Method {
	case "notifications/initialized", "initialized":
		log.Printf("<dispatch> client initialized")
	default:
		log.Printf("<dispatch> notification %s", req.Method)
	}
}

func (gw *Gateway) dispatchToolCall(ctx context.Context, req *jsonrpcRequest) *jsonrpcResponse {
	params, err := parseCallParams(req.Params)
	if err != nil {
		return rpcError(req.ID, codeInvalidParams, "Invalid params: "+err.Error())
	}
	if params.Name == "" {
		return rpcError(req.ID, codeInvalidParams, "Missing tool name")
	}

	entry, ok := gw.registry.lookup(params.Name)
	if !ok || !toolEnabled(gw.overrideSnapshot(), params.Name) {
		return rpcError(req.ID, codeMethodNotFound, "Unknown tool: "+params.Name)
	}
	for _, name := range entry.requiredArgs() {
		if _, present := params.Arguments[name]; !present {
			return rpcError(req.ID, codeInvalidParams, fmt.Sprintf("Missing required argument: %s", name))
		}
	}

	if entry.longRunning {
		gw.broadcast.publish(progressNotification(req.ID, 0, 1, params.Name+" started"))
		defer gw.broadcast.publish(progressNotification(req.ID, 1, 1, params.Name+" finished"))
	}

	text, err := entry.handler(ctx, params.Arguments)
	gw.persistUsage()
	if ctx.Err() == context.DeadlineExceeded {
		return rpcError(req.ID, codeRequestTimeout, "Request timed out: "+params.Name)
	}
	if err != nil {
		gw.broadcast.publish(logNotification("error", params.Name+": "+truncateMessage(err.Error(), internalErrorLimit)))
		return rpcInternalError(req.ID, "Internal error: "+err.Error())
	}
	return rpcOK(req.ID, mcp.NewToolResultText(text))
}

func (gw *Gateway) dispatchResourceRead(req *jsonrpcRequest) *jsonrpcResponse {
	var params struct {
		URI string `json:"uri"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcError(req.ID, codeInvalidParams, "Invalid params: "+err.Error())
		}
	}
	if params.URI == "" {
		return rpcError(req.ID, codeInvalidParams, "Missing resource uri")
	}
	contents, ok := gw.readResource(params.URI)
	if !ok {
		return rpcError(req.ID, codeInvalidParams, "Unknown resource: "+params.URI)
	}
	return rpcOK(req.ID, map[string]any{"contents": []any{contents}})
}
