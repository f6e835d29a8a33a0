package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func configHome() string {
	if v := strings.TrimSpace(os.Getenv("GENERAL_MCP_CONFIG_HOME")); v != "" {
		return filepath.Clean(v)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "general-mcp")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "general-mcp")
}

func defaultConfigPath() string {
	return filepath.Join(configHome(), "config.json")
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
