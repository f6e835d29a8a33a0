package main

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestLoadToolOverridesFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.json")
	content := `{
	    "tools": {
	        "search_tiktok": {"enabled": false},
	        "search_reddit": {"description": "Replacement text"}
	    }
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overrides file: %v", err)
	}

	overrides, err := loadToolOverridesFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overrides == nil {
		t.Fatal("expected overrides map")
	}
	if toolEnabled(overrides, "search_tiktok") {
		t.Fatal("search_tiktok should be disabled")
	}
	if !toolEnabled(overrides, "search_reddit") {
		t.Fatal("search_reddit should stay enabled")
	}
	if !toolEnabled(overrides, "not_mentioned") {
		t.Fatal("unmentioned tools default to enabled")
	}
}

func TestLoadToolOverridesEmptyPath(t *testing.T) {
	overrides, err := loadToolOverridesFromPath("")
	if err != nil || overrides != nil {
		t.Fatalf("empty path should yield nil, nil; got %v, %v", overrides, err)
	}
}

func TestApplyToolOverrideDescription(t *testing.T) {
	overrides := map[string]*ToolOverrideConfig{
		"search_reddit": {Description: strPtr("Rewritten")},
	}
	descriptor := map[string]any{"name": "search_reddit", "description": "Original"}
	out := applyToolOverride(descriptor, overrides)
	if out["description"] != "Rewritten" {
		t.Fatalf("description not overridden: %v", out["description"])
	}

	other := map[string]any{"name": "search_youtube", "description": "Untouched"}
	out = applyToolOverride(other, overrides)
	if out["description"] != "Untouched" {
		t.Fatalf("unrelated tool modified: %v", out["description"])
	}
}

func TestApplyToolOverrideNilSafe(t *testing.T) {
	if out := applyToolOverride(nil, nil); out != nil {
		t.Fatalf("expected nil, got %v", out)
	}
	descriptor := map[string]any{"name": "x"}
	if out := applyToolOverride(descriptor, nil); out["name"] != "x" {
		t.Fatalf("nil overrides must be passthrough")
	}
}

func writeOverrideFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overrides file: %v", err)
	}
	return path
}

func listedToolNames(gw *Gateway) map[string]bool {
	names := make(map[string]bool)
	for _, descriptor := range gw.collectTools() {
		if name, ok := descriptor["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestReloadOverridesFromFile(t *testing.T) {
	gw := testGateway()
	events, cancel := gw.broadcast.subscribe("watcher")
	defer cancel()

	path := writeOverrideFile(t, `{"tools": {"search_tiktok": {"enabled": false}}}`)
	if err := gw.reloadOverridesFromFile(path); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if listedToolNames(gw)["search_tiktok"] {
		t.Fatal("search_tiktok should be hidden after reload")
	}
	select {
	case event := <-events:
		if event.Method != "notifications/tools/list_changed" {
			t.Fatalf("unexpected event %s", event.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("no list_changed event after reload")
	}

	resp := gw.Dispatch(context.Background(), makeRequest(1, "tools/call",
		map[string]any{"name": "search_tiktok", "arguments": map[string]any{"query": "go"}}), "")
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("disabled tool should be rejected, got %+v", resp)
	}
}

func TestReloadOverridesFromFileBadJSONKeepsLastSet(t *testing.T) {
	gw := testGateway()
	good := writeOverrideFile(t, `{"tools": {"search_tiktok": {"enabled": false}}}`)
	if err := gw.reloadOverridesFromFile(good); err != nil {
		t.Fatalf("reload: %v", err)
	}

	bad := writeOverrideFile(t, `{"tools": {`)
	if err := gw.reloadOverridesFromFile(bad); err == nil {
		t.Fatal("expected an error for malformed override file")
	}
	if listedToolNames(gw)["search_tiktok"] {
		t.Fatal("failed reload must keep the previous override set")
	}
}

func TestOverrideReloadOnSIGHUP(t *testing.T) {
	gw := testGateway()
	path := writeOverrideFile(t, `{"tools": {"search_tiktok": {"enabled": false}}}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchOverrideReloads(ctx, gw, path)

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("send SIGHUP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !listedToolNames(gw)["search_tiktok"] {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("override file never reloaded after SIGHUP")
}
