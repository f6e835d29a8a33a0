package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ===== DataForSEO tools =====

// dataForSEOStatusOK is the API's task-level success code.
const dataForSEOStatusOK = 20000

func (deps *toolDeps) hasDataForSEO() bool {
	return deps.creds.DataForSEOLogin != "" && deps.creds.DataForSEOPassword != ""
}

// dataForSEORequest posts a task payload with basic auth and returns the
// first task once its status checks out.
func (deps *toolDeps) dataForSEORequest(ctx context.Context, endpoint string, payload any) (map[string]any, string) {
	credentials := base64.StdEncoding.EncodeToString(
		[]byte(deps.creds.DataForSEOLogin + ":" + deps.creds.DataForSEOPassword))

	data := deps.client.request(ctx, outboundRequest{
		Method: "POST",
		URL:    dataForSEOAPIBase + "/" + endpoint,
		Headers: map[string]string{
			"Authorization": "Basic " + credentials,
		},
		Body: payload,
	})

	tasks := sliceField(data, "tasks")
	if len(tasks) == 0 {
		return nil, "no tasks in response"
	}
	task := asMap(tasks[0])
	if intField(task, "status_code") != dataForSEOStatusOK {
		return nil, strFieldOr(task, "status_message", "Unknown error")
	}
	return task, ""
}

func (deps *toolDeps) searchSERP(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	location := stringArg(args, "location", "United States")
	language := stringArg(args, "language", "en")
	limit := limitArg(args, "limit", 10, 100, "DataForSEO")
	deps.ledger.record("DataForSEO", "serp", limit, nil, floatPtr(0.0025))

	if !deps.hasDataForSEO() {
		return fmt.Sprintf("SERP search for '%s'\n\nDataForSEO API required. Configure DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD to enable SERP analysis.\n\nQuery: %s\nLocation: %s\nLanguage: %s\nLimit: %d",
			query, query, location, language, limit), nil
	}

	task, errMsg := deps.dataForSEORequest(ctx, "serp/google/organic/live/advanced", []map[string]any{{
		"keyword":       query,
		"location_name": location,
		"language_code": language,
		"device":        "desktop",
		"os":            "windows",
	}})
	if task == nil {
		return fmt.Sprintf("SERP API error: %s", errMsg), nil
	}

	results := sliceField(task, "result")
	if len(results) == 0 {
		return fmt.Sprintf("No SERP results found for '%s'", query), nil
	}
	items := sliceField(asMap(results[0]), "items")
	if len(items) == 0 {
		return fmt.Sprintf("No SERP results found for '%s'", query), nil
	}

	var sections []string
	for i, entry := range items {
		if len(sections) >= limit {
			break
		}
		result := asMap(entry)
		title := strFieldOr(result, "title", "No title")
		link := strField(result, "url")
		description := truncateText(strField(result, "description"), 200)
		position := intField(result, "rank_absolute")
		if position == 0 {
			position = i + 1
		}
		sections = append(sections, fmt.Sprintf("%d. %s\n%s\n%s", position, title, link, description))
	}

	header := fmt.Sprintf("SERP results for '%s' (%s, %s)\n\nFound %d organic results", query, location, language, len(sections))
	return joinSections(header, sections, "\n\n---\n\n"), nil
}

func (deps *toolDeps) keywordResearch(ctx context.Context, args map[string]any) (string, error) {
	keywords := stringSliceArg(args, "keywords")
	location := stringArg(args, "location", "United States")
	language := stringArg(args, "language", "en")

	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	cost := float64(len(keywords)) * 0.001
	deps.ledger.record("DataForSEO", "keywords", len(keywords), nil, floatPtr(cost))

	if len(keywords) == 0 {
		return "No keywords provided", nil
	}
	if !deps.hasDataForSEO() {
		return fmt.Sprintf("Keyword research for %d keywords\n\nDataForSEO API required. Configure DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD to enable keyword research.\n\nKeywords: %s\nLocation: %s\nLanguage: %s",
			len(keywords), strings.Join(keywords, ", "), location, language), nil
	}

	task, errMsg := deps.dataForSEORequest(ctx, "keywords_data/google_ads/search_volume/live", []map[string]any{{
		"keywords":      keywords,
		"location_name": location,
		"language_code": language,
	}})
	if task == nil {
		return fmt.Sprintf("Keywords API error: %s", errMsg), nil
	}

	results := sliceField(task, "result")
	if len(results) == 0 {
		return "No keyword data found", nil
	}

	var sections []string
	for _, entry := range results {
		result := asMap(entry)
		sections = append(sections, fmt.Sprintf("%s\nVolume: %d/month\nCPC: $%.2f\nCompetition: %s",
			strFieldOr(result, "keyword", "Unknown"),
			intField(result, "search_volume"),
			floatField(result, "cpc"),
			strFieldOr(result, "competition", "Unknown")))
	}

	header := fmt.Sprintf("Keyword research results (%s, %s)\n\nAnalyzed %d keywords", location, language, len(sections))
	return joinSections(header, sections, "\n\n---\n\n"), nil
}

func (deps *toolDeps) competitorAnalysis(ctx context.Context, args map[string]any) (string, error) {
	domain := stringArg(args, "domain", "")
	analysisType := stringArg(args, "analysis_type", "organic")
	limit := limitArg(args, "limit", 10, 100, "DataForSEO")
	deps.ledger.record("DataForSEO", "competitor", limit, nil, floatPtr(0.01))

	if !deps.hasDataForSEO() {
		return fmt.Sprintf("Competitor analysis for %s\n\nDataForSEO API required. Configure DATAFORSEO_LOGIN and DATAFORSEO_PASSWORD to enable competitor analysis.\n\nDomain: %s\nType: %s\nLimit: %d",
			domain, domain, analysisType, limit), nil
	}

	var endpoint string
	var payload []map[string]any
	switch analysisType {
	case "backlinks":
		endpoint = "backlinks/domain_pages/live"
		payload = []map[string]any{{"target": domain, "limit": limit}}
	case "competitors":
		endpoint = "dataforseo_labs/google/competitors_domain/live"
		payload = []map[string]any{{
			"target":        domain,
			"location_name": "United States",
			"language_code": "en",
			"limit":         limit,
		}}
	default:
		analysisType = "organic"
		endpoint = "dataforseo_labs/google/domain_rank_overview/live"
		payload = []map[string]any{{
			"target":        domain,
			"location_name": "United States",
			"language_code": "en",
		}}
	}

	task, errMsg := deps.dataForSEORequest(ctx, endpoint, payload)
	if task == nil {
		return fmt.Sprintf("Competitor API error: %s", errMsg), nil
	}

	results := sliceField(task, "result")
	if len(results) == 0 {
		return fmt.Sprintf("No %s data found for %s", analysisType, domain), nil
	}

	switch analysisType {
	case "organic":
		metrics := mapField(asMap(results[0]), "metrics")
		var b strings.Builder
		fmt.Fprintf(&b, "Domain overview: %s\n\n", domain)
		fmt.Fprintf(&b, "Organic keywords: %d\n", intField(metrics, "organic_keywords"))
		fmt.Fprintf(&b, "Organic traffic: %d/month\n", intField(metrics, "organic_traffic"))
		fmt.Fprintf(&b, "Traffic cost: $%.2f\n", floatField(metrics, "organic_cost"))
		fmt.Fprintf(&b, "Avg position: %.1f\n", floatField(metrics, "organic_avg_position"))
		return b.String(), nil

	case "competitors":
		var sections []string
		for i, entry := range results {
			if len(sections) >= limit {
				break
			}
			result := asMap(entry)
			sections = append(sections, fmt.Sprintf("%d. %s\nShared keywords: %d\nTraffic: %d/month",
				i+1,
				strFieldOr(result, "domain", "Unknown"),
				intField(result, "intersections"),
				intField(result, "organic_traffic")))
		}
		header := fmt.Sprintf("Top competitors for %s\n\nFound %d competitor domains", domain, len(results))
		return joinSections(header, sections, "\n\n---\n\n"), nil

	default: // backlinks
		var sections []string
		for i, entry := range results {
			if len(sections) >= limit {
				break
			}
			result := asMap(entry)
			sections = append(sections, fmt.Sprintf("%d. %s\nBacklinks: %d\nReferring domains: %d",
				i+1,
				strFieldOr(result, "url", "Unknown"),
				intField(result, "backlinks"),
				intField(result, "referring_domains")))
		}
		header := fmt.Sprintf("Top backlinked pages for %s\n\nFound %d pages", domain, len(results))
		return joinSections(header, sections, "\n\n---\n\n"), nil
	}
}
