package main

import (
	"context"
	"fmt"
	"strconv"
)

// ===== YouTube tools =====

func (deps *toolDeps) searchYouTube(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	order := stringArg(args, "order", "viewCount")
	limit := limitArg(args, "limit", 10, maxResultLimit, "YouTube")
	deps.ledger.record("YouTube", "search", limit, nil, nil)

	if deps.creds.YouTubeKey == "" {
		return "YouTube API not configured. Set YOUTUBE_API_KEY to enable video search.", nil
	}

	params := map[string]string{
		"part":       "snippet",
		"q":          query,
		"type":       "video",
		"order":      order,
		"maxResults": strconv.Itoa(limit),
		"key":        deps.creds.YouTubeKey,
	}
	if after := stringArg(args, "published_after", ""); after != "" {
		params["publishedAfter"] = after
	}
	if before := stringArg(args, "published_before", ""); before != "" {
		params["publishedBefore"] = before
	}

	data := deps.client.request(ctx, outboundRequest{
		Method: "GET",
		URL:    youtubeAPIBase + "/search",
		Params: params,
	})

	videos := sliceField(data, "items")
	if len(videos) == 0 {
		return fmt.Sprintf("YouTube search failed for '%s'", query), nil
	}

	var sections []string
	for _, entry := range videos {
		video := asMap(entry)
		snippet := mapField(video, "snippet")
		title := strFieldOr(snippet, "title", "No title")
		channel := strFieldOr(snippet, "channelTitle", "Unknown")
		description := truncateText(strField(snippet, "description"), 150)
		videoID := strField(mapField(video, "id"), "videoId")
		videoURL := "https://www.youtube.com/watch?v=" + videoID

		sections = append(sections, fmt.Sprintf("%s\n%s\n%s\n%s", title, channel, description, videoURL))
	}

	header := fmt.Sprintf("Found %d YouTube videos for '%s'", len(sections), query)
	return joinSections(header, sections, "\n---\n"), nil
}

func (deps *toolDeps) getYouTubeTrending(ctx context.Context, args map[string]any) (string, error) {
	category := stringArg(args, "category", "0")
	region := stringArg(args, "region", "US")
	limit := limitArg(args, "limit", 10, maxResultLimit, "YouTube")
	deps.ledger.record("YouTube", "trending", limit, nil, nil)

	if deps.creds.YouTubeKey == "" {
		return "YouTube API not configured. Set YOUTUBE_API_KEY to enable trending lookups.", nil
	}

	data := deps.client.request(ctx, outboundRequest{
		Method: "GET",
		URL:    youtubeAPIBase + "/videos",
		Params: map[string]string{
			"part":            "snippet,statistics",
			"chart":           "mostPopular",
			"regionCode":      region,
			"videoCategoryId": category,
			"maxResults":      strconv.Itoa(limit),
			"key":             deps.creds.YouTubeKey,
		},
	})

	videos := sliceField(data, "items")
	if len(videos) == 0 {
		return "Failed to get trending videos", nil
	}

	var sections []string
	for _, entry := range videos {
		video := asMap(entry)
		snippet := mapField(video, "snippet")
		stats := mapField(video, "statistics")

		title := strFieldOr(snippet, "title", "No title")
		channel := strFieldOr(snippet, "channelTitle", "Unknown")
		views := strFieldOr(stats, "viewCount", "0")
		likes := strFieldOr(stats, "likeCount", "0")
		videoID := strField(video, "id")
		videoURL := "https://www.youtube.com/watch?v=" + videoID

		sections = append(sections, fmt.Sprintf("%s\n%s\n%s views | %s likes\n%s", title, channel, views, likes, videoURL))
	}

	header := fmt.Sprintf("Found %d trending videos", len(sections))
	return joinSections(header, sections, "\n---\n"), nil
}
