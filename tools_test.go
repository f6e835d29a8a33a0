package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bareDeps() *toolDeps {
	return &toolDeps{
		client: newAPIClient(),
		ledger: newUsageLedger(ledgerCapacity),
		creds:  &apiCredentials{},
	}
}

func TestHandlersReportMissingCredentials(t *testing.T) {
	deps := bareDeps()
	ctx := context.Background()

	cases := []struct {
		name string
		call func() (string, error)
		want string
	}{
		{"search_youtube", func() (string, error) {
			return deps.searchYouTube(ctx, map[string]any{"query": "go"})
		}, "YouTube API not configured"},
		{"get_youtube_trending", func() (string, error) {
			return deps.getYouTubeTrending(ctx, map[string]any{})
		}, "YouTube API not configured"},
		{"search_perplexity", func() (string, error) {
			return deps.searchPerplexity(ctx, map[string]any{"query": "go"})
		}, "Perplexity API not configured"},
		{"search_tiktok", func() (string, error) {
			return deps.searchTikTok(ctx, map[string]any{"query": "go"})
		}, apifyMissingToken},
		{"get_twitter_profile", func() (string, error) {
			return deps.getTwitterProfile(ctx, map[string]any{"username": "golang"})
		}, apifyMissingToken},
		{"get_instagram_profile", func() (string, error) {
			return deps.getInstagramProfile(ctx, map[string]any{"username": "golang"})
		}, apifyMissingToken},
	}
	for _, tc := range cases {
		text, err := tc.call()
		if err != nil {
			t.Fatalf("%s returned error: %v", tc.name, err)
		}
		if !strings.Contains(text, tc.want) {
			t.Fatalf("%s = %q, want mention of %q", tc.name, text, tc.want)
		}
	}
}

func TestDataForSEOHandlersDegradeWithoutCredentials(t *testing.T) {
	deps := bareDeps()
	ctx := context.Background()

	text, err := deps.searchSERP(ctx, map[string]any{"query": "mcp servers"})
	if err != nil {
		t.Fatalf("searchSERP error: %v", err)
	}
	if !strings.Contains(text, "DataForSEO API required") || !strings.Contains(text, "mcp servers") {
		t.Fatalf("unexpected degradation text: %q", text)
	}

	text, err = deps.keywordResearch(ctx, map[string]any{"keywords": []any{"golang", "mcp"}})
	if err != nil {
		t.Fatalf("keywordResearch error: %v", err)
	}
	if !strings.Contains(text, "golang, mcp") {
		t.Fatalf("keywords not echoed: %q", text)
	}
}

func TestRedditCommentsRejectsBadURL(t *testing.T) {
	deps := bareDeps()
	text, err := deps.getRedditComments(context.Background(), map[string]any{
		"post_url": "https://example.com/not-reddit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("not JSON: %q", text)
	}
	if payload["success"] != false {
		t.Fatalf("expected failure payload, got %v", payload)
	}
}

func TestCompareTrendsInputValidation(t *testing.T) {
	deps := bareDeps()
	ctx := context.Background()

	text, err := deps.compareGoogleTrends(ctx, map[string]any{"terms": []any{}})
	if err != nil || !strings.Contains(text, "No terms provided") {
		t.Fatalf("empty terms: %q, %v", text, err)
	}

	six := []any{"a", "b", "c", "d", "e", "f"}
	text, err = deps.compareGoogleTrends(ctx, map[string]any{"terms": six})
	if err != nil || !strings.Contains(text, "Maximum 5 terms") {
		t.Fatalf("too many terms: %q, %v", text, err)
	}
}

func TestHandlerCallsRecordUsage(t *testing.T) {
	deps := bareDeps()
	if _, err := deps.searchYouTube(context.Background(), map[string]any{"query": "go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := deps.ledger.snapshot()
	if len(records) != 1 || records[0].Service != "YouTube" {
		t.Fatalf("usage not recorded: %+v", records)
	}
}

func TestLimitArgClampsThroughHandlers(t *testing.T) {
	if got := limitArg(map[string]any{"limit": float64(500)}, "limit", 10, maxResultLimit, "Test"); got != maxResultLimit {
		t.Fatalf("oversize limit not clamped: %d", got)
	}
	if got := limitArg(map[string]any{}, "limit", 10, maxResultLimit, "Test"); got != 10 {
		t.Fatalf("fallback not applied: %d", got)
	}
	if got := limitArg(map[string]any{"limit": "bogus"}, "limit", 10, maxResultLimit, "Test"); got != 1 {
		t.Fatalf("non-numeric must clamp to 1, got %d", got)
	}
}

func TestInstagramPostsNestedShapes(t *testing.T) {
	flat := map[string]any{"posts": []any{map[string]any{"caption": "x"}}}
	if got := instagramPosts(flat, 5); len(got) != 1 {
		t.Fatalf("posts shape: got %d", len(got))
	}

	top := map[string]any{"topPosts": []any{map[string]any{"caption": "a"}, map[string]any{"caption": "b"}}}
	if got := instagramPosts(top, 1); len(got) != 1 {
		t.Fatalf("topPosts should cap at limit, got %d", len(got))
	}

	loose := map[string]any{"whatever": []any{map[string]any{"ownerUsername": "u"}}}
	if got := instagramPosts(loose, 5); len(got) != 1 {
		t.Fatalf("fallback scan failed, got %d", len(got))
	}

	if got := instagramPosts(map[string]any{"noise": "text"}, 5); got != nil {
		t.Fatalf("expected nil for unrecognized shape, got %v", got)
	}
}

func TestRegistryDescriptors(t *testing.T) {
	deps := bareDeps()
	registry := newToolRegistry(deps)
	if registry.size() != 19 {
		t.Fatalf("expected 19 registered tools, got %d", registry.size())
	}

	entry, ok := registry.lookup("search_reddit")
	if !ok {
		t.Fatal("search_reddit missing")
	}
	required := entry.requiredArgs()
	if len(required) != 1 || required[0] != "query" {
		t.Fatalf("unexpected required args %v", required)
	}

	twitter, _ := registry.lookup("search_twitter")
	if twitter == nil || !twitter.longRunning {
		t.Fatal("search_twitter should be long-running")
	}
	stats, _ := registry.lookup("get_api_usage_stats")
	if stats == nil || stats.longRunning {
		t.Fatal("get_api_usage_stats should not be long-running")
	}
}

func TestApifyTokenTravelsInHeaderNotURL(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	deps := bareDeps()
	deps.creds.ApifyToken = "secret-token"
	deps.apifyBase = srv.URL

	if _, err := deps.searchTwitter(context.Background(), map[string]any{"query": "go"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if strings.Contains(gotQuery, "secret-token") {
		t.Fatalf("token leaked into the URL: %q", gotQuery)
	}
}

func TestSearchTwitterIgnoresDaysBackInPayload(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	deps := bareDeps()
	deps.creds.ApifyToken = "tok"
	deps.apifyBase = srv.URL

	args := map[string]any{"query": "go", "days_back": "not-a-number"}
	if _, err := deps.searchTwitter(context.Background(), args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := payload["days_back"]; present {
		t.Fatal("days_back must not reach the actor payload")
	}
}
