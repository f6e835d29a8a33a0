package main

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestNormalizeToolAnnotationsEmpty(t *testing.T) {
	tool := mcp.Tool{Name: "example"}
	if annotations := normalizeToolAnnotations(tool); annotations != nil {
		t.Fatalf("expected nil for unset hints, got %v", annotations)
	}
}

func TestNormalizeToolAnnotationsPreservesSetHints(t *testing.T) {
	trueVal := true
	falseVal := false
	tool := mcp.Tool{
		Name: "example",
		Annotations: mcp.ToolAnnotation{
			Title:           "My Tool",
			ReadOnlyHint:    &trueVal,
			DestructiveHint: &falseVal,
		},
	}

	annotations := normalizeToolAnnotations(tool)
	if annotations["title"] != "My Tool" {
		t.Fatalf("expected title preserved, got %v", annotations["title"])
	}
	if v, ok := annotations["readOnlyHint"].(bool); !ok || !v {
		t.Fatalf("expected readOnlyHint=true, got %v", annotations["readOnlyHint"])
	}
	if v, ok := annotations["destructiveHint"].(bool); !ok || v {
		t.Fatalf("expected destructiveHint=false, got %v", annotations["destructiveHint"])
	}
	if _, present := annotations["idempotentHint"]; present {
		t.Fatal("unset hints must stay absent")
	}
}
