package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Addr != defaultAddr {
		t.Fatalf("addr = %q", config.Server.Addr)
	}
	if config.Server.Name != defaultServerName {
		t.Fatalf("name = %q", config.Server.Name)
	}
	if got := config.Server.metadataBudget(); got != defaultMetadataBudget {
		t.Fatalf("metadata budget = %v", got)
	}
	if got := config.Server.callBudget(); got != defaultCallBudget {
		t.Fatalf("call budget = %v", got)
	}
	if got := config.Server.keepalive(); got != defaultKeepalive {
		t.Fatalf("keepalive = %v", got)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if config.Server.Addr != defaultAddr {
		t.Fatalf("addr = %q", config.Server.Addr)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
	    "server": {
	        "addr": ":9090",
	        "name": "custom-gateway",
	        "callTimeoutSec": 30
	    },
	    "tools": {
	        "search_tiktok": {"enabled": false}
	    }
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", config.Server.Addr)
	}
	if config.Server.Name != "custom-gateway" {
		t.Fatalf("name = %q", config.Server.Name)
	}
	if got := config.Server.callBudget(); got != 30*time.Second {
		t.Fatalf("call budget = %v", got)
	}
	if toolEnabled(config.Tools, "search_tiktok") {
		t.Fatal("override from config file ignored")
	}
}

func TestPortEnvOverridesAddr(t *testing.T) {
	t.Setenv("PORT", "7777")
	config, err := loadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Addr != ":7777" {
		t.Fatalf("addr = %q, want :7777", config.Server.Addr)
	}
}

func TestCredentialsSanitized(t *testing.T) {
	creds := &apiCredentials{ApifyToken: "tok", DataForSEOLogin: "user"}
	status := creds.sanitized()
	if !status["apify"] {
		t.Fatal("apify should read configured")
	}
	if status["youtube"] {
		t.Fatal("youtube should read unconfigured")
	}
	if status["dataforseo"] {
		t.Fatal("dataforseo needs both login and password")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_FLAG", "yes")
	if !envEnabled("TEST_FLAG") {
		t.Fatal("yes should enable")
	}
	t.Setenv("TEST_FLAG", "0")
	if envEnabled("TEST_FLAG") {
		t.Fatal("0 should disable")
	}
	t.Setenv("TEST_INT", "42")
	if got := envInt("TEST_INT", 7); got != 42 {
		t.Fatalf("envInt = %d", got)
	}
	t.Setenv("TEST_INT", "junk")
	if got := envInt("TEST_INT", 7); got != 7 {
		t.Fatalf("fallback = %d", got)
	}
}
