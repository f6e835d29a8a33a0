package main

import (
	"encoding/json"
)

// ===== JSON-RPC envelope =====

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeRequestTimeout = -32001
)

// internalErrorLimit caps how much of an internal failure message is
// echoed back to the client.
const internalErrorLimit = 200

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

// isNotification reports whether the request carries no id and therefore
// must never receive a response, under any circumstance.
func (r *jsonrpcRequest) isNotification() bool {
	return r == nil || r.ID == nil
}

func rpcOK(id any, result any) *jsonrpcResponse {
	return &jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

func rpcError(id any, code int, msg string) *jsonrpcResponse {
	return &jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: msg},
	}
}

func rpcInternalError(id any, msg string) *jsonrpcResponse {
	return rpcError(id, codeInternalError, truncateMessage(msg, internalErrorLimit))
}

func truncateMessage(msg string, limit int) string {
	if limit <= 0 || len(msg) <= limit {
		return msg
	}
	return msg[:limit] + "..."
}

// callParams is the params shape of a tools/call request. The out-of-band
// auth_token field is accepted for clients that cannot set headers and is
// stripped before the arguments reach any handler.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	AuthToken string         `json:"auth_token,omitempty"`
}

func parseCallParams(raw json.RawMessage) (*callParams, error) {
	p := &callParams{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
	}
	if p.Arguments == nil {
		p.Arguments = make(map[string]any)
	}
	// strip the token if a client nested it inside arguments
	if tok, ok := p.Arguments["auth_token"].(string); ok {
		if p.AuthToken == "" {
			p.AuthToken = tok
		}
		delete(p.Arguments, "auth_token")
	}
	return p, nil
}
