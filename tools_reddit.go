package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// ===== Reddit tools =====

// The free Reddit JSON endpoints need no credentials, only a browser-like
// User-Agent.

func (deps *toolDeps) searchReddit(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	subreddit := stringArg(args, "subreddit", "")
	sort := stringArg(args, "sort", "relevance")
	period := stringArg(args, "time", "all")
	limit := limitArg(args, "limit", 10, maxResultLimit, "Reddit")

	searchURL := redditAPIBase + "/search.json"
	params := map[string]string{
		"q":     query,
		"sort":  sort,
		"t":     period,
		"limit": strconv.Itoa(limit),
	}
	if subreddit != "" {
		searchURL = fmt.Sprintf("%s/r/%s/search.json", redditAPIBase, subreddit)
		params["restrict_sr"] = "on"
	}

	data := deps.client.request(ctx, outboundRequest{
		Method:  "GET",
		URL:     searchURL,
		Params:  params,
		Headers: browserHeaders(),
	})

	posts := sliceField(mapField(data, "data"), "children")
	if len(posts) == 0 {
		deps.ledger.record("Reddit", "search", limit, intPtr(0), floatPtr(0))
		return fmt.Sprintf("No results found for Reddit search: '%s'", query), nil
	}

	var sections []string
	for _, entry := range posts {
		if len(sections) >= limit {
			break
		}
		post := mapField(asMap(entry), "data")
		if post == nil {
			continue
		}
		title := strFieldOr(post, "title", "No title")
		author := strFieldOr(post, "author", "Unknown")
		score := intField(post, "score")
		comments := intField(post, "num_comments")
		subredditName := strField(post, "subreddit")
		link := strField(post, "url")
		if permalink := strField(post, "permalink"); permalink != "" {
			link = "https://reddit.com" + permalink
		}
		selftext := truncateText(strField(post, "selftext"), 200)

		section := fmt.Sprintf("%s\nu/%s in r/%s\n%d upvotes | %d comments", title, author, subredditName, score, comments)
		if selftext != "" {
			section += "\n" + selftext
		}
		section += "\n" + link
		sections = append(sections, section)
	}

	deps.ledger.record("Reddit", "search", limit, intPtr(len(sections)), floatPtr(0))
	header := fmt.Sprintf("Reddit search results for '%s' (%d found)", query, len(sections))
	return joinSections(header, sections, "\n---\n"), nil
}

func (deps *toolDeps) getSubredditPosts(ctx context.Context, args map[string]any) (string, error) {
	subreddit := stringArg(args, "subreddit", "")
	sort := stringArg(args, "sort", "hot")
	period := stringArg(args, "time", "day")
	limit := limitArg(args, "limit", 10, maxResultLimit, "Reddit")

	switch sort {
	case "hot", "new", "rising", "top":
	default:
		sort = "hot"
	}

	listingURL := fmt.Sprintf("%s/r/%s/%s.json", redditAPIBase, subreddit, sort)
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if sort == "top" {
		params["t"] = period
	}

	data := deps.client.request(ctx, outboundRequest{
		Method:  "GET",
		URL:     listingURL,
		Params:  params,
		Headers: browserHeaders(),
	})

	posts := sliceField(mapField(data, "data"), "children")
	if len(posts) == 0 {
		deps.ledger.record("Reddit", "subreddit_posts", limit, intPtr(0), floatPtr(0))
		return fmt.Sprintf("Failed to fetch posts from r/%s. Subreddit may not exist or be private.", subreddit), nil
	}

	var sections []string
	for _, entry := range posts {
		if len(sections) >= limit {
			break
		}
		post := mapField(asMap(entry), "data")
		if post == nil {
			continue
		}
		title := truncateText(strFieldOr(post, "title", "No title"), 100)
		author := strFieldOr(post, "author", "Unknown")
		score := intField(post, "score")
		comments := intField(post, "num_comments")
		link := strField(post, "url")
		if permalink := strField(post, "permalink"); permalink != "" {
			link = "https://reddit.com" + permalink
		}
		selftext := truncateText(strField(post, "selftext"), 150)

		section := fmt.Sprintf("%s\nu/%s | %d points | %d comments", title, author, score, comments)
		if selftext != "" {
			section += "\n" + selftext
		}
		section += "\n" + link
		sections = append(sections, section)
	}

	deps.ledger.record("Reddit", "subreddit_posts", limit, intPtr(len(sections)), floatPtr(0))
	header := fmt.Sprintf("Found %d posts from r/%s (sorted by %s)", len(sections), subreddit, sort)
	return joinSections(header, sections, "\n---\n"), nil
}

var redditPostURLPattern = regexp.MustCompile(`reddit\.com/r/([^/]+)/comments/([^/]+)`)

// getRedditComments reports as JSON rather than formatted text; clients
// consuming comment threads want the structure.
func (deps *toolDeps) getRedditComments(ctx context.Context, args map[string]any) (string, error) {
	postURL := stringArg(args, "post_url", "")
	limit := limitArg(args, "limit", 10, maxResultLimit, "Reddit")

	match := redditPostURLPattern.FindStringSubmatch(postURL)
	if match == nil {
		return toolErrorJSON("Invalid Reddit URL format"), nil
	}
	subreddit, postID := match[1], match[2]

	commentsURL := fmt.Sprintf("%s/r/%s/comments/%s.json", redditAPIBase, subreddit, postID)
	data := deps.client.request(ctx, outboundRequest{
		Method:  "GET",
		URL:     commentsURL,
		Headers: browserHeaders(),
	})

	// Reddit returns [post listing, comment listing]
	listings := arrayItems(data)
	if len(listings) < 2 {
		deps.ledger.record("Reddit", "comments", limit, intPtr(0), floatPtr(0))
		return toolErrorJSON("Failed to fetch comments for " + postURL), nil
	}

	type commentEntry struct {
		Author     string  `json:"author"`
		Body       string  `json:"body"`
		Score      int     `json:"score"`
		CreatedUTC float64 `json:"created_utc"`
		Permalink  string  `json:"permalink"`
	}

	var comments []commentEntry
	for _, entry := range sliceField(mapField(asMap(listings[1]), "data"), "children") {
		if len(comments) >= limit {
			break
		}
		comment := mapField(asMap(entry), "data")
		body := strField(comment, "body")
		if body == "" {
			// deleted or removed
			continue
		}
		permalink := strField(comment, "permalink")
		if permalink != "" {
			permalink = "https://reddit.com" + permalink
		}
		comments = append(comments, commentEntry{
			Author:     strFieldOr(comment, "author", "unknown"),
			Body:       body,
			Score:      intField(comment, "score"),
			CreatedUTC: floatField(comment, "created_utc"),
			Permalink:  permalink,
		})
	}

	deps.ledger.record("Reddit", "comments", limit, intPtr(len(comments)), floatPtr(0))
	payload, err := json.MarshalIndent(map[string]any{
		"success":  true,
		"comments": comments,
		"count":    len(comments),
		"post_url": postURL,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func toolErrorJSON(message string) string {
	payload, _ := json.Marshal(map[string]any{"success": false, "error": message})
	return string(payload)
}
