package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// ===== tool overrides =====

// ToolOverrideConfig tweaks how a registered tool is exposed. A disabled
// tool is hidden from tools/list and rejected by tools/call; auth state
// never changes visibility.
type ToolOverrideConfig struct {
	Enabled     *bool   `json:"enabled,omitempty"`
	Description *string `json:"description,omitempty"`
}

type toolOverrideFile struct {
	Tools map[string]*ToolOverrideConfig `json:"tools,omitempty"`
}

// loadToolOverridesFromPath reads a standalone override file. An empty path
// or an empty file yields nil, meaning "expose everything as registered".
func loadToolOverridesFromPath(path string) (map[string]*ToolOverrideConfig, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	normalized, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve override path: %w", err)
	}
	data, err := os.ReadFile(normalized)
	if err != nil {
		return nil, err
	}
	var raw toolOverrideFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse override file %s: %w", normalized, err)
	}
	if len(raw.Tools) == 0 {
		return nil, nil
	}
	out := make(map[string]*ToolOverrideConfig, len(raw.Tools))
	for name, cfg := range raw.Tools {
		if cfg == nil {
			continue
		}
		copied := *cfg
		out[name] = &copied
	}
	return out, nil
}

// reloadOverridesFromFile swaps in the override file's current contents and
// notifies streaming clients that the tool list changed.
func (gw *Gateway) reloadOverridesFromFile(path string) error {
	overrides, err := loadToolOverridesFromPath(path)
	if err != nil {
		return err
	}
	gw.reloadOverrides(overrides)
	return nil
}

// watchOverrideReloads re-reads the override file on SIGHUP. A failed
// reload keeps the last good set.
func watchOverrideReloads(ctx context.Context, gw *Gateway, path string) {
	if path == "" {
		return
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if err := gw.reloadOverridesFromFile(path); err != nil {
					log.Printf("<overrides> reload %s: %v", path, err)
					continue
				}
				log.Printf("<overrides> reloaded tool overrides from %s", path)
			}
		}
	}()
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func toolEnabled(overrides map[string]*ToolOverrideConfig, name string) bool {
	if overrides == nil {
		return true
	}
	if cfg := overrides[name]; cfg != nil && cfg.Enabled != nil {
		return *cfg.Enabled
	}
	return true
}

func applyToolOverride(descriptor map[string]any, overrides map[string]*ToolOverrideConfig) map[string]any {
	if descriptor == nil || overrides == nil {
		return descriptor
	}
	name, _ := descriptor["name"].(string)
	return overrides[name].applyTo(descriptor)
}

func (c *ToolOverrideConfig) applyTo(descriptor map[string]any) map[string]any {
	if c == nil || descriptor == nil {
		return descriptor
	}
	if c.Description != nil {
		descriptor["description"] = *c.Description
	}
	return descriptor
}
