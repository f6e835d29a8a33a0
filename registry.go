package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ===== tool registry =====

// maxResultLimit caps every per-call result count across services.
const maxResultLimit = 50

// toolHandler executes one tool call and returns human-readable text.
// Failures that originate in an upstream API are reported inside the text
// itself; an error return is reserved for invocation problems.
type toolHandler func(ctx context.Context, args map[string]any) (string, error)

type registeredTool struct {
	descriptor mcp.Tool
	handler    toolHandler

	// longRunning marks tools whose calls emit progress notifications.
	longRunning bool
}

// toolRegistry is the static name -> (descriptor, handler) mapping, built
// once at startup and immutable afterwards.
type toolRegistry struct {
	order []string
	tools map[string]*registeredTool
}

func (r *toolRegistry) register(tool mcp.Tool, handler toolHandler) {
	r.registerTool(&registeredTool{descriptor: tool, handler: handler})
}

func (r *toolRegistry) registerLongRunning(tool mcp.Tool, handler toolHandler) {
	r.registerTool(&registeredTool{descriptor: tool, handler: handler, longRunning: true})
}

func (r *toolRegistry) registerTool(entry *registeredTool) {
	name := entry.descriptor.Name
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("duplicate tool registration: %s", name))
	}
	r.order = append(r.order, name)
	r.tools[name] = entry
}

func (r *toolRegistry) lookup(name string) (*registeredTool, bool) {
	entry, ok := r.tools[name]
	return entry, ok
}

func (r *toolRegistry) names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *toolRegistry) size() int { return len(r.order) }

// requiredArgs returns the schema's required list for pre-invoke checks.
func (t *registeredTool) requiredArgs() []string {
	return t.descriptor.InputSchema.Required
}

// toolDeps is everything a handler needs: the resilient client, the usage
// ledger, and the third-party credentials. apifyBase falls back to the
// public endpoint when empty.
type toolDeps struct {
	client    *apiClient
	ledger    *usageLedger
	creds     *apiCredentials
	apifyBase string
}

func newToolRegistry(deps *toolDeps) *toolRegistry {
	r := &toolRegistry{tools: make(map[string]*registeredTool)}

	r.register(mcp.NewTool("search_reddit",
		mcp.WithDescription("Search Reddit for posts matching a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms to look for")),
		mcp.WithString("subreddit", mcp.Description("Specific subreddit to search (optional)")),
		mcp.WithString("sort", mcp.Description("Sort order (relevance, hot, top, new, comments)")),
		mcp.WithString("time", mcp.Description("Time period (all, year, month, week, day, hour)")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 50)")),
	), deps.searchReddit)

	r.register(mcp.NewTool("get_subreddit_posts",
		mcp.WithDescription("Get posts from specific subreddit"),
		mcp.WithString("subreddit", mcp.Required(), mcp.Description("Subreddit name")),
		mcp.WithString("sort", mcp.Description("Sort order (hot, new, rising, top)")),
		mcp.WithString("time", mcp.Description("Time period (all, year, month, week, day, hour)")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 50)")),
	), deps.getSubredditPosts)

	r.register(mcp.NewTool("get_reddit_comments",
		mcp.WithDescription("Get comments from a Reddit post"),
		mcp.WithString("post_url", mcp.Required(), mcp.Description("Reddit post URL")),
		mcp.WithNumber("limit", mcp.Description("Number of comments to return (max 50)")),
	), deps.getRedditComments)

	r.register(mcp.NewTool("search_youtube",
		mcp.WithDescription("Search YouTube videos"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithString("published_after", mcp.Description("ISO date (optional)")),
		mcp.WithString("published_before", mcp.Description("ISO date (optional)")),
		mcp.WithString("order", mcp.Description("Sort order (relevance, date, viewCount, rating)")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 50)")),
	), deps.searchYouTube)

	r.register(mcp.NewTool("get_youtube_trending",
		mcp.WithDescription("Get trending YouTube videos"),
		mcp.WithString("category", mcp.Description("Category ID (0=all, 10=music, 17=sports, etc.)")),
		mcp.WithString("region", mcp.Description("Region code (US, GB, etc.)")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 50)")),
	), deps.getYouTubeTrending)

	r.registerLongRunning(mcp.NewTool("search_twitter",
		mcp.WithDescription("Search tweets matching a query"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("limit", mcp.Description("Number of tweets to return (max 50)")),
		mcp.WithString("sort", mcp.Description("Sort order (Latest, Top)")),
		mcp.WithNumber("days_back", mcp.Description("How many days back to search (max 30)")),
	), deps.searchTwitter)

	r.registerLongRunning(mcp.NewTool("get_user_tweets",
		mcp.WithDescription("Get recent tweets from a specific user"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Twitter username without @")),
		mcp.WithNumber("limit", mcp.Description("Number of tweets to return (max 50)")),
		mcp.WithNumber("days_back", mcp.Description("How many days back to fetch (max 30)")),
		mcp.WithString("start", mcp.Description("Start date YYYY-MM-DD (optional)")),
		mcp.WithString("end", mcp.Description("End date YYYY-MM-DD (optional)")),
	), deps.getUserTweets)

	r.registerLongRunning(mcp.NewTool("get_twitter_profile",
		mcp.WithDescription("Get Twitter user profile information"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Twitter username without @")),
		mcp.WithBoolean("get_followers", mcp.Description("Include recent followers")),
		mcp.WithBoolean("get_following", mcp.Description("Include recently followed accounts")),
	), deps.getTwitterProfile)

	r.registerLongRunning(mcp.NewTool("search_tiktok",
		mcp.WithDescription("Search TikTok videos"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("limit", mcp.Description("Number of videos to return (max 50)")),
	), deps.searchTikTok)

	r.registerLongRunning(mcp.NewTool("get_tiktok_user_videos",
		mcp.WithDescription("Get TikTok videos from a specific user"),
		mcp.WithString("username", mcp.Required(), mcp.Description("TikTok username without @")),
		mcp.WithNumber("limit", mcp.Description("Number of videos to return (max 50)")),
		mcp.WithString("start_date", mcp.Description("Oldest post date YYYY-MM-DD (optional)")),
		mcp.WithString("end_date", mcp.Description("Newest post date YYYY-MM-DD (optional)")),
	), deps.getTikTokUserVideos)

	r.registerLongRunning(mcp.NewTool("search_instagram",
		mcp.WithDescription("Search Instagram posts by hashtag or keyword"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Hashtag or keyword to search")),
		mcp.WithNumber("limit", mcp.Description("Number of posts to return (max 50)")),
		mcp.WithString("search_type", mcp.Description("Search type (hashtag, user, place)")),
	), deps.searchInstagram)

	r.registerLongRunning(mcp.NewTool("get_instagram_profile",
		mcp.WithDescription("Get Instagram user profile information"),
		mcp.WithString("username", mcp.Required(), mcp.Description("Instagram username without @")),
		mcp.WithBoolean("include_posts", mcp.Description("Include recent posts")),
	), deps.getInstagramProfile)

	r.register(mcp.NewTool("search_perplexity",
		mcp.WithDescription("AI-powered web search with cited sources"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or search query")),
		mcp.WithNumber("max_results", mcp.Description("Maximum cited sources to include (max 10)")),
	), deps.searchPerplexity)

	r.register(mcp.NewTool("search_google_trends",
		mcp.WithDescription("Get Google Trends interest data for a term"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Term to analyze")),
		mcp.WithString("timeframe", mcp.Description("Time period (today 5-y, today 12-m, etc.)")),
		mcp.WithString("geo", mcp.Description("Geographic location (US, GB, etc.)")),
	), deps.searchGoogleTrends)

	r.register(mcp.NewTool("compare_google_trends",
		mcp.WithDescription("Compare multiple terms in Google Trends"),
		mcp.WithArray("terms", mcp.Required(), mcp.Description("List of terms to compare (max 5)"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("timeframe", mcp.Description("Time period (today 5-y, today 12-m, etc.)")),
		mcp.WithString("geo", mcp.Description("Geographic location (US, GB, etc.)")),
	), deps.compareGoogleTrends)

	r.register(mcp.NewTool("get_api_usage_stats",
		mcp.WithDescription("Get comprehensive API usage statistics"),
		mcp.WithReadOnlyHintAnnotation(true),
	), deps.getAPIUsageStats)

	r.register(mcp.NewTool("search_serp",
		mcp.WithDescription("Search Google SERP data using DataForSEO"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query to analyze")),
		mcp.WithString("location", mcp.Description("Location name (e.g. 'United States', 'London')")),
		mcp.WithString("language", mcp.Description("Language code (e.g. 'en', 'es')")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 100)")),
	), deps.searchSERP)

	r.register(mcp.NewTool("keyword_research",
		mcp.WithDescription("Get keyword suggestions and search volume data using DataForSEO"),
		mcp.WithArray("keywords", mcp.Required(), mcp.Description("Keywords to research (max 10)"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("location", mcp.Description("Location name for search volume data")),
		mcp.WithString("language", mcp.Description("Language code")),
	), deps.keywordResearch)

	r.register(mcp.NewTool("competitor_analysis",
		mcp.WithDescription("Analyze competitor rankings and backlinks using DataForSEO"),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain to analyze (e.g. 'example.com')")),
		mcp.WithString("analysis_type", mcp.Description("Type of analysis (organic, backlinks, competitors)")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (max 100)")),
	), deps.competitorAnalysis)

	return r
}

// ===== argument helpers =====

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
