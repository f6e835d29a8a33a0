package main

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// ===== resources =====

const (
	usageStatsResourceURI   = "usage://stats"
	serverConfigResourceURI = "config://server"
)

func (gw *Gateway) collectResources() []map[string]any {
	resources := []mcp.Resource{
		{
			URI:         usageStatsResourceURI,
			Name:        "API usage statistics",
			Description: "Rolling per-service usage ledger with call counts and cost estimates",
			MIMEType:    "text/plain",
		},
		{
			URI:         serverConfigResourceURI,
			Name:        "Server configuration",
			Description: "Sanitized gateway configuration and integration status",
			MIMEType:    "application/json",
		},
	}

	out := make([]map[string]any, 0, len(resources))
	for _, resource := range resources {
		item := map[string]any{
			"uri":  resource.URI,
			"name": resource.Name,
		}
		if resource.Description != "" {
			item["description"] = resource.Description
		}
		if resource.MIMEType != "" {
			item["mimeType"] = resource.MIMEType
		}
		out = append(out, item)
	}
	return out
}

func (gw *Gateway) readResource(uri string) (map[string]any, bool) {
	switch uri {
	case usageStatsResourceURI:
		return map[string]any{
			"uri":      uri,
			"mimeType": "text/plain",
			"text":     gw.ledger.usageReport(),
		}, true
	case serverConfigResourceURI:
		summary := map[string]any{
			"name":             gw.config.Server.Name,
			"version":          gw.config.Server.Version,
			"addr":             gw.config.Server.Addr,
			"tools":            gw.registry.size(),
			"connectedClients": gw.clients.count(),
			"integrations":     gw.creds.sanitized(),
		}
		encoded, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return nil, false
		}
		return map[string]any{
			"uri":      uri,
			"mimeType": "application/json",
			"text":     string(encoded),
		}, true
	default:
		return nil, false
	}
}
