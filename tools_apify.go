package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ===== Apify-backed tools (Twitter, TikTok, Instagram) =====

func (deps *toolDeps) apifyURL(actor string) string {
	base := deps.apifyBase
	if base == "" {
		base = apifyAPIBase
	}
	return fmt.Sprintf("%s/%s/run-sync-get-dataset-items", base, actor)
}

// runApifyActor calls an actor synchronously and returns its dataset items.
// The token travels in the Authorization header, never the URL. These runs
// regularly take tens of seconds, hence the longer timeout.
func (deps *toolDeps) runApifyActor(ctx context.Context, actor string, payload map[string]any) []any {
	data := deps.client.request(ctx, outboundRequest{
		Method: "POST",
		URL:    deps.apifyURL(actor),
		Headers: map[string]string{
			"Authorization": "Bearer " + deps.creds.ApifyToken,
		},
		Body:    payload,
		Timeout: apifyRequestTimeout,
	})
	return arrayItems(data)
}

const apifyMissingToken = "APIFY_TOKEN not configured"

// ----- Twitter -----

func (deps *toolDeps) searchTwitter(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	sort := stringArg(args, "sort", "Latest")
	limit := limitArg(args, "limit", 15, maxResultLimit, "Twitter")
	// days_back is accepted and bounds-checked, but the actor payload has
	// no date-window field to forward it to
	clampDaysBack(args["days_back"], 30, "Twitter")
	deps.ledger.record("Twitter", "search", limit, nil, floatPtr(0.01))

	if deps.creds.ApifyToken == "" {
		return toolErrorJSON(apifyMissingToken), nil
	}

	items := deps.runApifyActor(ctx, apifyTwitterActor, map[string]any{
		"twitterHandles":    []string{},
		"maxItems":          limit,
		"searchTerms":       []string{query},
		"sort":              sort,
		"customMapFunction": "(object) => { return {...object} }",
	})
	if len(items) == 0 {
		return toolErrorJSON(fmt.Sprintf("No tweets found for '%s'", query)), nil
	}

	type tweetEntry struct {
		Text      string `json:"text"`
		Author    string `json:"author"`
		Likes     int    `json:"likes"`
		Retweets  int    `json:"retweets"`
		Replies   int    `json:"replies"`
		URL       string `json:"url"`
		CreatedAt string `json:"created_at"`
	}

	var tweets []tweetEntry
	for _, entry := range items {
		if len(tweets) >= limit {
			break
		}
		item := asMap(entry)
		text := strFieldOr(item, "full_text", strField(item, "text"))
		tweets = append(tweets, tweetEntry{
			Text:      truncateText(text, 200),
			Author:    strFieldOr(mapField(item, "author"), "username", "unknown"),
			Likes:     intField(item, "favorite_count"),
			Retweets:  intField(item, "retweet_count"),
			Replies:   intField(item, "reply_count"),
			URL:       strField(item, "url"),
			CreatedAt: strField(item, "created_at"),
		})
	}

	payload, err := json.MarshalIndent(map[string]any{
		"success": true,
		"tweets":  tweets,
		"count":   len(tweets),
		"query":   query,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (deps *toolDeps) getUserTweets(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username", "")
	limit := limitArg(args, "limit", 15, maxResultLimit, "Twitter")
	// accepted but not forwarded; date filtering goes through start/end
	clampDaysBack(args["days_back"], 30, "Twitter")
	start := stringArg(args, "start", "")
	end := stringArg(args, "end", "")
	deps.ledger.record("Twitter", "user_tweets", limit, nil, floatPtr(0.01))

	if deps.creds.ApifyToken == "" {
		return toolErrorJSON(apifyMissingToken), nil
	}

	payload := map[string]any{
		"twitterHandles":    []string{username},
		"maxItems":          limit,
		"sort":              "Latest",
		"customMapFunction": "(object) => { return {...object} }",
	}
	if start != "" {
		payload["start"] = start
	}
	if end != "" {
		payload["end"] = end
	}

	items := deps.runApifyActor(ctx, apifyTwitterActor, payload)

	type tweetEntry struct {
		Text         string `json:"text"`
		Author       string `json:"author"`
		CreatedAt    string `json:"created_at"`
		LikeCount    int    `json:"like_count"`
		RetweetCount int    `json:"retweet_count"`
		ReplyCount   int    `json:"reply_count"`
		URL          string `json:"url"`
	}

	// profile records come back interleaved; keep only actual tweets
	var tweets []tweetEntry
	for _, entry := range items {
		if len(tweets) >= limit {
			break
		}
		item := asMap(entry)
		text := strField(item, "text")
		if text == "" {
			continue
		}
		tweets = append(tweets, tweetEntry{
			Text:         text,
			Author:       strFieldOr(mapField(item, "author"), "userName", username),
			CreatedAt:    strField(item, "createdAt"),
			LikeCount:    intField(item, "likeCount"),
			RetweetCount: intField(item, "retweetCount"),
			ReplyCount:   intField(item, "replyCount"),
			URL:          strField(item, "url"),
		})
	}

	result := map[string]any{
		"success": true,
		"count":   len(tweets),
		"user":    username,
		"tweets":  tweets,
	}
	if start != "" || end != "" {
		result["date_filter"] = map[string]string{"start": start, "end": end}
	}
	payloadJSON, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(payloadJSON), nil
}

func (deps *toolDeps) getTwitterProfile(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username", "")
	getFollowers := boolArg(args, "get_followers")
	getFollowing := boolArg(args, "get_following")
	deps.ledger.record("Twitter", "profile", 1, nil, floatPtr(0.01))

	if deps.creds.ApifyToken == "" {
		return apifyMissingToken, nil
	}

	maxItems := 1
	if getFollowers || getFollowing {
		maxItems = 10
	}
	items := deps.runApifyActor(ctx, apifyTwitterActor, map[string]any{
		"customMapFunction":       "(object) => { return {...object} }",
		"getFollowers":            getFollowers,
		"getFollowing":            getFollowing,
		"getRetweeters":           false,
		"includeUnavailableUsers": false,
		"maxItems":                maxItems,
		"startUrls":               []string{"https://twitter.com"},
		"twitterHandles":          []string{username},
	})
	if len(items) == 0 {
		return fmt.Sprintf("Failed to get profile for @%s", username), nil
	}

	profile := asMap(items[0])
	if strField(profile, "userName") != username {
		return fmt.Sprintf("Could not find profile data for @%s", username), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Twitter Profile: @%s\n\n", strFieldOr(profile, "userName", "Unknown"))
	fmt.Fprintf(&b, "Name: %s\n", strFieldOr(profile, "name", "Unknown"))
	if boolField(profile, "isVerified") {
		b.WriteString("Verified\n")
	}
	fmt.Fprintf(&b, "Bio: %s\n", strFieldOr(profile, "description", "No bio"))
	fmt.Fprintf(&b, "Location: %s\n\n", strFieldOr(profile, "location", "Not specified"))
	fmt.Fprintf(&b, "Followers: %d\n", intField(profile, "followers"))
	fmt.Fprintf(&b, "Following: %d\n", intField(profile, "following"))
	fmt.Fprintf(&b, "Tweets: %d\n", intField(profile, "statusesCount"))
	fmt.Fprintf(&b, "Likes: %d\n\n", intField(profile, "favouritesCount"))
	fmt.Fprintf(&b, "Joined: %s\n", strFieldOr(profile, "createdAt", "Unknown"))
	fmt.Fprintf(&b, "Profile: %s\n", strField(profile, "url"))

	if getFollowers && len(items) > 1 {
		b.WriteString("\nRecent followers:\n")
		for _, entry := range capSlice(items[1:], 5) {
			follower := asMap(entry)
			if strField(follower, "followerOf") != username {
				continue
			}
			fmt.Fprintf(&b, "- @%s (%s, %d followers)\n",
				strField(follower, "userName"), strField(follower, "name"), intField(follower, "followers"))
		}
	}
	if getFollowing && len(items) > 1 {
		b.WriteString("\nRecently following:\n")
		for _, entry := range capSlice(items[1:], 5) {
			following := asMap(entry)
			if strField(following, "followingOf") != username {
				continue
			}
			fmt.Fprintf(&b, "- @%s (%s, %d followers)\n",
				strField(following, "userName"), strField(following, "name"), intField(following, "followers"))
		}
	}
	return b.String(), nil
}

func capSlice(items []any, max int) []any {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// ----- TikTok -----

func (deps *toolDeps) searchTikTok(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	limit := limitArg(args, "limit", 10, maxResultLimit, "TikTok")
	deps.ledger.record("TikTok", "search", limit, nil, nil)

	if deps.creds.ApifyToken == "" {
		return apifyMissingToken, nil
	}

	items := deps.runApifyActor(ctx, apifyTikTokActor, map[string]any{
		"searchQueries":                 []string{query},
		"resultsPerPage":                limit,
		"hashtags":                      []string{},
		"excludePinnedPosts":            false,
		"shouldDownloadCovers":          false,
		"shouldDownloadSlideshowImages": false,
		"shouldDownloadSubtitles":       false,
		"shouldDownloadVideos":          false,
		"profileScrapeSections":         []string{"videos"},
		"profileSorting":                "popular",
		"searchSection":                 "",
		"maxProfilesPerQuery":           50,
	})
	if items == nil {
		return fmt.Sprintf("TikTok search failed for '%s'", query), nil
	}

	var sections []string
	for _, entry := range items {
		if len(sections) >= limit {
			break
		}
		video := asMap(entry)
		author := strFieldOr(mapField(video, "authorMeta"), "name", "Unknown")
		text := truncateText(strField(video, "text"), 150)
		likes := intField(video, "diggCount")
		views := intField(video, "playCount")
		link := strField(video, "webVideoUrl")

		sections = append(sections, fmt.Sprintf("@%s\n%s\n%d views | %d likes\n%s", author, text, views, likes, link))
	}

	header := fmt.Sprintf("Found %d TikTok videos for '%s'", len(sections), query)
	return joinSections(header, sections, "\n---\n"), nil
}

func (deps *toolDeps) getTikTokUserVideos(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username", "")
	limit := limitArg(args, "limit", 10, maxResultLimit, "TikTok")
	startDate := stringArg(args, "start_date", "")
	endDate := stringArg(args, "end_date", "")
	deps.ledger.record("TikTok", "user_videos", limit, nil, nil)

	if deps.creds.ApifyToken == "" {
		return apifyMissingToken, nil
	}

	payload := map[string]any{
		"excludePinnedPosts":            false,
		"profiles":                      []string{username},
		"resultsPerPage":                limit,
		"shouldDownloadCovers":          false,
		"shouldDownloadSlideshowImages": false,
		"shouldDownloadSubtitles":       false,
		"shouldDownloadVideos":          false,
		"profileScrapeSections":         []string{"videos"},
		"profileSorting":                "latest",
		"searchSection":                 "",
		"maxProfilesPerQuery":           10,
	}
	if endDate != "" {
		payload["newestPostDate"] = endDate
	}
	if startDate != "" {
		payload["oldestPostDateUnified"] = startDate
	}

	items := deps.runApifyActor(ctx, apifyTikTokActor, payload)
	if len(items) == 0 {
		return fmt.Sprintf("No videos found for @%s. The account may be private, empty, rate limited, or not exist.", username), nil
	}

	var sections []string
	for _, entry := range items {
		if len(sections) >= limit {
			break
		}
		video := asMap(entry)
		text := truncateText(strField(video, "text"), 150)
		likes := intField(video, "diggCount")
		views := intField(video, "playCount")
		created := strField(video, "createTime")
		if len(created) > 10 {
			created = created[:10]
		}
		link := strFieldOr(video, "webVideoUrl", strField(video, "videoUrl"))

		sections = append(sections, fmt.Sprintf("%s\n%s\n%d views | %d likes\n%s", created, text, views, likes, link))
	}

	dateFilter := ""
	if startDate != "" || endDate != "" {
		from, to := startDate, endDate
		if from == "" {
			from = "start"
		}
		if to == "" {
			to = "latest"
		}
		dateFilter = fmt.Sprintf(" (%s to %s)", from, to)
	}
	header := fmt.Sprintf("Found %d videos from @%s%s", len(sections), username, dateFilter)
	return joinSections(header, sections, "\n---\n"), nil
}

// ----- Instagram -----

func (deps *toolDeps) searchInstagram(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	searchType := stringArg(args, "search_type", "hashtag")
	limit := limitArg(args, "limit", 20, maxResultLimit, "Instagram")
	deps.ledger.record("Instagram", "search", limit, nil, floatPtr(0.03))

	if deps.creds.ApifyToken == "" {
		return toolErrorJSON(apifyMissingToken), nil
	}

	items := deps.runApifyActor(ctx, apifyInstagramActor, map[string]any{
		"search":        query,
		"searchType":    searchType,
		"resultsType":   "posts",
		"resultsLimit":  limit,
		"searchLimit":   1,
		"addParentData": false,
	})
	if len(items) == 0 {
		return toolErrorJSON(fmt.Sprintf("No Instagram posts found for '%s'", query)), nil
	}

	posts := instagramPosts(asMap(items[0]), limit)
	if len(posts) == 0 {
		return toolErrorJSON(fmt.Sprintf("No Instagram posts found for '%s'", query)), nil
	}

	type postEntry struct {
		Username  string `json:"username"`
		Caption   string `json:"caption"`
		Likes     int    `json:"likes"`
		Comments  int    `json:"comments"`
		Type      string `json:"type"`
		URL       string `json:"url"`
		CreatedAt string `json:"created_at"`
	}

	var formatted []postEntry
	for _, entry := range posts {
		post := asMap(entry)
		likes := intField(post, "likesCount")
		if likes == 0 {
			likes = intField(post, "likes")
		}
		comments := intField(post, "commentsCount")
		if comments == 0 {
			comments = intField(post, "comments")
		}
		formatted = append(formatted, postEntry{
			Username:  strFieldOr(post, "ownerUsername", strFieldOr(post, "username", "Unknown")),
			Caption:   truncateText(strFieldOr(post, "caption", strField(post, "text")), 200),
			Likes:     likes,
			Comments:  comments,
			Type:      strFieldOr(post, "type", "post"),
			URL:       strFieldOr(post, "url", strField(post, "link")),
			CreatedAt: strFieldOr(post, "timestamp", strField(post, "createdAt")),
		})
	}

	payload, err := json.Marshal(map[string]any{
		"success":     true,
		"count":       len(formatted),
		"query":       query,
		"search_type": searchType,
		"posts":       formatted,
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// instagramPosts digs the post list out of the actor's nested result shape,
// which differs between hashtag, user, and place searches.
func instagramPosts(item map[string]any, limit int) []any {
	if posts := sliceField(item, "topPosts"); len(posts) > 0 {
		return capSlice(posts, limit)
	}
	if posts := sliceField(item, "posts"); len(posts) > 0 {
		return capSlice(posts, limit)
	}
	for _, value := range item {
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		first := asMap(list[0])
		if first == nil {
			continue
		}
		for _, field := range []string{"caption", "text", "ownerUsername", "username"} {
			if _, present := first[field]; present {
				return capSlice(list, limit)
			}
		}
	}
	return nil
}

func (deps *toolDeps) getInstagramProfile(ctx context.Context, args map[string]any) (string, error) {
	username := stringArg(args, "username", "")
	includePosts := boolArg(args, "include_posts")
	deps.ledger.record("Instagram", "profile", 1, nil, floatPtr(0.02))

	if deps.creds.ApifyToken == "" {
		return apifyMissingToken, nil
	}

	items := deps.runApifyActor(ctx, apifyInstagramActor, map[string]any{
		"directUrls":   []string{fmt.Sprintf("https://www.instagram.com/%s/", username)},
		"resultsType":  "details",
		"resultsLimit": 1,
	})
	if len(items) == 0 {
		return fmt.Sprintf("Failed to get profile for @%s", username), nil
	}

	profile := asMap(items[0])

	var b strings.Builder
	fmt.Fprintf(&b, "Instagram Profile: @%s\n\n", strFieldOr(profile, "username", username))
	fmt.Fprintf(&b, "Name: %s\n", strFieldOr(profile, "fullName", "Unknown"))
	if boolField(profile, "verified") {
		b.WriteString("Verified\n")
	}
	fmt.Fprintf(&b, "Bio: %s\n", strFieldOr(profile, "biography", "No bio"))
	fmt.Fprintf(&b, "Website: %s\n\n", strFieldOr(profile, "website", "None"))
	fmt.Fprintf(&b, "Followers: %d\n", intField(profile, "followersCount"))
	fmt.Fprintf(&b, "Following: %d\n", intField(profile, "followsCount"))
	fmt.Fprintf(&b, "Posts: %d\n\n", intField(profile, "postsCount"))
	fmt.Fprintf(&b, "Profile: %s\n", strFieldOr(profile, "url", "https://instagram.com/"+username))

	if includePosts {
		if latest := sliceField(profile, "latestPosts"); len(latest) > 0 {
			b.WriteString("\nRecent posts:\n")
			for i, entry := range capSlice(latest, 5) {
				post := asMap(entry)
				caption := truncateText(strFieldOr(post, "caption", "No caption"), 50)
				fmt.Fprintf(&b, "%d. %s (%d likes)\n", i+1, caption, intField(post, "likesCount"))
			}
		}
	}
	return b.String(), nil
}
