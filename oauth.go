package main

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ===== OAuth discovery & stubs =====

// The gateway is not an authorization server; these endpoints exist so that
// MCP clients probing the standard discovery routes receive a coherent
// answer instead of a 404. Tokens issued here are synthetic and feed the
// same advisory authenticated flag as any other bearer token.

func (gw *Gateway) oauthIssuer() string {
	base := gw.config.Server.BaseURL
	if base == "" {
		base = "http://localhost" + gw.config.Server.Addr
	}
	return strings.TrimRight(base, "/")
}

func registerOAuthRoutes(mux *http.ServeMux, gw *Gateway) {
	mux.HandleFunc("/.well-known/oauth-authorization-server", gw.handleOAuthMetadata)
	mux.HandleFunc("/oauth/authorize", gw.handleOAuthAuthorize)
	mux.HandleFunc("/oauth/token", gw.handleOAuthToken)
	mux.HandleFunc("/oauth/register", gw.handleOAuthRegister)
}

func (gw *Gateway) handleOAuthMetadata(w http.ResponseWriter, _ *http.Request) {
	issuer := gw.oauthIssuer()
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/oauth/authorize",
		"token_endpoint":                        issuer + "/oauth/token",
		"registration_endpoint":                 issuer + "/oauth/register",
		"grant_types_supported":                 []string{"authorization_code", "client_credentials"},
		"response_types_supported":              []string{"code"},
		"token_endpoint_auth_methods_supported": []string{"none", "client_secret_post"},
		"code_challenge_methods_supported":      []string{"S256"},
	})
}

// handleOAuthAuthorize short-circuits the code flow: every request is
// approved with a synthetic code, redirected back if a redirect_uri was
// supplied.
func (gw *Gateway) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	code := uuid.New().String()
	redirect := r.URL.Query().Get("redirect_uri")
	if redirect == "" {
		writeJSON(w, http.StatusOK, map[string]any{"code": code})
		return
	}
	target, err := url.Parse(redirect)
	if err != nil {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}
	q := target.Query()
	q.Set("code", code)
	if state := r.URL.Query().Get("state"); state != "" {
		q.Set("state", state)
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (gw *Gateway) handleOAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": uuid.New().String(),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (gw *Gateway) handleOAuthRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"client_id":                  uuid.New().String(),
		"client_secret":              uuid.New().String(),
		"token_endpoint_auth_method": "none",
	})
}
