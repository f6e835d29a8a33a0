package main

import "github.com/mark3labs/mcp-go/mcp"

// normalizeToolAnnotations flattens the set annotation hints into a plain
// map; tools that declare nothing yield nil so the descriptor stays small.
func normalizeToolAnnotations(tool mcp.Tool) map[string]any {
	existing := tool.Annotations
	annotations := make(map[string]any, 5)

	if existing.Title != "" {
		annotations["title"] = existing.Title
	}
	if existing.ReadOnlyHint != nil {
		annotations["readOnlyHint"] = *existing.ReadOnlyHint
	}
	if existing.DestructiveHint != nil {
		annotations["destructiveHint"] = *existing.DestructiveHint
	}
	if existing.IdempotentHint != nil {
		annotations["idempotentHint"] = *existing.IdempotentHint
	}
	if existing.OpenWorldHint != nil {
		annotations["openWorldHint"] = *existing.OpenWorldHint
	}

	if len(annotations) == 0 {
		return nil
	}
	return annotations
}
