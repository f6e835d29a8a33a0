package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ===== descriptor shaping =====

func toolDescriptor(tool mcp.Tool) map[string]any {
	descriptor := map[string]any{
		"name": tool.Name,
	}
	if tool.Description != "" {
		descriptor["description"] = tool.Description
	}
	if len(tool.RawInputSchema) > 0 {
		descriptor["inputSchema"] = tool.RawInputSchema
	} else {
		descriptor["inputSchema"] = tool.InputSchema
	}
	if annotations := normalizeToolAnnotations(tool); annotations != nil {
		descriptor["annotations"] = annotations
	}
	return descriptor
}

// collectTools returns the registry snapshot served by tools/list, in
// registration order, with override-disabled tools hidden.
func (gw *Gateway) collectTools() []map[string]any {
	overrides := gw.overrideSnapshot()
	result := make([]map[string]any, 0, gw.registry.size())
	for _, name := range gw.registry.names() {
		if !toolEnabled(overrides, name) {
			continue
		}
		entry, ok := gw.registry.lookup(name)
		if !ok {
			continue
		}
		result = append(result, applyToolOverride(toolDescriptor(entry.descriptor), overrides))
	}
	return result
}

func (gw *Gateway) buildInitializeResult(authenticated bool) map[string]any {
	return map[string]any{
		"protocolVersion": defaultProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{"subscribe": false, "listChanged": false},
			"prompts":   map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    gw.config.Server.Name,
			"version": gw.config.Server.Version,
		},
		"authenticated": authenticated,
	}
}

// buildManifestDocument is the well-known discovery payload.
func (gw *Gateway) buildManifestDocument() map[string]any {
	return map[string]any{
		"name":        gw.config.Server.Name,
		"version":     gw.config.Server.Version,
		"description": "Multi-platform search gateway exposing social, trends, and SEO tools over MCP",
		"protocol":    defaultProtocolVersion,
		"endpoint":    "/message",
		"sseEndpoint": "/sse",
		"wsEndpoint":  "/ws",
		"tools":       gw.collectTools(),
		"resources":   gw.collectResources(),
	}
}
