package main

import (
	"context"
	"strings"
)

// ===== upstream service endpoints =====

const (
	redditAPIBase     = "https://www.reddit.com"
	youtubeAPIBase    = "https://www.googleapis.com/youtube/v3"
	apifyAPIBase      = "https://api.apify.com/v2/acts"
	perplexityAPIBase = "https://api.perplexity.ai/chat/completions"
	dataForSEOAPIBase = "https://api.dataforseo.com/v3"
	trendsAPIBase     = "https://trends.google.com/trends/api"

	// Apify actor identifiers. The Twitter actor must stay 61RPP7dywgiy0JPD0;
	// the V38PZzpEgOfeeWvZY variant returns an incompatible schema.
	apifyTwitterActor   = "61RPP7dywgiy0JPD0"
	apifyTikTokActor    = "clockworks~free-tiktok-scraper"
	apifyInstagramActor = "shu8hvrXbJbY3Eb9W"
)

// browserUserAgent keeps the free Reddit endpoints from refusing us as a bot.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func browserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// ===== loose-JSON accessors =====

// Upstream payloads arrive as map[string]any; these helpers keep the
// handlers readable while tolerating missing or mistyped fields.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func mapField(m map[string]any, key string) map[string]any {
	return asMap(m[key])
}

func sliceField(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func strFieldOr(m map[string]any, key, fallback string) string {
	if s := strField(m, key); s != "" {
		return s
	}
	return fallback
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// arrayItems unwraps the "items" envelope the client puts around top-level
// JSON arrays.
func arrayItems(data map[string]any) []any {
	if data == nil {
		return nil
	}
	return sliceField(data, "items")
}

// truncateText shortens s to max runes with an ellipsis marker.
func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func joinSections(header string, sections []string, separator string) string {
	return header + "\n\n" + strings.Join(sections, separator)
}

// ===== usage analytics tool =====

func (deps *toolDeps) getAPIUsageStats(_ context.Context, _ map[string]any) (string, error) {
	return deps.ledger.usageReport(), nil
}

// limitArg reads a numeric argument and clamps it for the named service.
func limitArg(args map[string]any, key string, fallback, maxAllowed int, service string) int {
	v, ok := args[key]
	if !ok {
		return clampLimit(fallback, maxAllowed, service)
	}
	return clampLimit(v, maxAllowed, service)
}
