package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ===== Perplexity search =====

const perplexityModel = "llama-3.1-sonar-small-128k-online"

func (deps *toolDeps) searchPerplexity(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	maxResults := limitArg(args, "max_results", 10, 10, "Perplexity")
	deps.ledger.record("Perplexity", "search", maxResults, nil, nil)

	if deps.creds.PerplexityKey == "" {
		return "Perplexity API not configured. Set PERPLEXITY_API_KEY to enable AI search.", nil
	}

	data := deps.client.request(ctx, outboundRequest{
		Method: "POST",
		URL:    perplexityAPIBase,
		Headers: map[string]string{
			"Authorization": "Bearer " + deps.creds.PerplexityKey,
		},
		Body: map[string]any{
			"model": perplexityModel,
			"messages": []map[string]string{
				{"role": "system", "content": "Be precise and informative. Provide factual information with sources."},
				{"role": "user", "content": query},
			},
			"max_tokens":       1000,
			"temperature":      0.2,
			"return_citations": true,
		},
	})

	choices := sliceField(data, "choices")
	if len(choices) == 0 {
		return fmt.Sprintf("Perplexity search failed for '%s'", query), nil
	}
	content := strField(mapField(asMap(choices[0]), "message"), "content")

	var b strings.Builder
	fmt.Fprintf(&b, "Perplexity AI search results for '%s'\n\n%s", query, content)

	if citations := sliceField(data, "citations"); len(citations) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, citation := range capSlice(citations, maxResults) {
			if s, ok := citation.(string); ok {
				fmt.Fprintf(&b, "%d. %s\n", i+1, s)
			}
		}
	}
	return b.String(), nil
}

// ===== Google Trends =====

// The trends endpoints are unofficial and aggressively rate limited; when
// they refuse us the tools answer with practical guidance instead of a bare
// failure.
const trendsRateLimitGuidance = `Google Trends is currently rate limiting requests (Error 429).

This is a common issue with the unofficial Google Trends API. Here are some alternatives:

1. Wait and retry later - Rate limits usually reset after a few hours
2. Use a VPN or proxy - Change your IP address to bypass the limit
3. Try alternative services:
   - SerpApi Google Trends API (paid, but reliable)
   - Glimpse API (paid, provides real search volumes)
   - DataForSEO Trends API (aggregates data from multiple sources)

For now, please try again later or consider using one of the alternative services.`

func (deps *toolDeps) searchGoogleTrends(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query", "")
	timeframe := stringArg(args, "timeframe", "today 12-m")
	geo := stringArg(args, "geo", "US")
	deps.ledger.record("Google Trends", "search", 1, nil, nil)

	series, err := deps.fetchTrendsSeries(ctx, []string{query}, timeframe, geo)
	if err != nil {
		return trendsRateLimitGuidance, nil
	}
	values := series[query]
	if len(values) == 0 {
		return "No trend data available for this query", nil
	}

	latest := values[len(values)-1]
	return fmt.Sprintf("Current trend value for '%s' (%s, %s): %.0f\nAverage over period: %.1f",
		query, timeframe, geo, latest, meanOf(values)), nil
}

func (deps *toolDeps) compareGoogleTrends(ctx context.Context, args map[string]any) (string, error) {
	terms := stringSliceArg(args, "terms")
	timeframe := stringArg(args, "timeframe", "today 12-m")
	geo := stringArg(args, "geo", "US")

	if len(terms) == 0 {
		return "No terms provided for comparison", nil
	}
	if len(terms) > 5 {
		return "Maximum 5 terms can be compared at once", nil
	}
	deps.ledger.record("Google Trends", "compare", len(terms), nil, nil)

	series, err := deps.fetchTrendsSeries(ctx, terms, timeframe, geo)
	if err != nil {
		return trendsRateLimitGuidance, nil
	}

	var b strings.Builder
	b.WriteString("Trend comparison:\n\nCurrent values:\n")
	for _, term := range terms {
		values := series[term]
		if len(values) == 0 {
			fmt.Fprintf(&b, "  - %s: N/A\n", term)
			continue
		}
		fmt.Fprintf(&b, "  - %s: %.1f\n", term, values[len(values)-1])
	}
	b.WriteString("\nAverage values:\n")
	for _, term := range terms {
		values := series[term]
		if len(values) == 0 {
			fmt.Fprintf(&b, "  - %s: N/A\n", term)
			continue
		}
		fmt.Fprintf(&b, "  - %s: %.1f\n", term, meanOf(values))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// fetchTrendsSeries runs the two-step widget dance: explore issues a token
// for the TIMESERIES widget, multiline returns the interest-over-time data.
// Both responses carry an anti-hijacking prefix before the JSON body.
func (deps *toolDeps) fetchTrendsSeries(ctx context.Context, terms []string, timeframe, geo string) (map[string][]float64, error) {
	comparison := make([]map[string]any, 0, len(terms))
	for _, term := range terms {
		comparison = append(comparison, map[string]any{
			"keyword": term,
			"geo":     geo,
			"time":    timeframe,
		})
	}
	exploreReq, err := json.Marshal(map[string]any{
		"comparisonItem": comparison,
		"category":       0,
		"property":       "",
	})
	if err != nil {
		return nil, err
	}

	exploreBody, err := deps.trendsCall(ctx, trendsAPIBase+"/explore", map[string]string{
		"hl":  "en-US",
		"tz":  "360",
		"req": string(exploreReq),
	})
	if err != nil {
		return nil, err
	}

	var explore struct {
		Widgets []struct {
			ID      string          `json:"id"`
			Token   string          `json:"token"`
			Request json.RawMessage `json:"request"`
		} `json:"widgets"`
	}
	if err := json.Unmarshal(exploreBody, &explore); err != nil {
		return nil, err
	}

	var token string
	var widgetReq json.RawMessage
	for _, widget := range explore.Widgets {
		if widget.ID == "TIMESERIES" {
			token = widget.Token
			widgetReq = widget.Request
			break
		}
	}
	if token == "" {
		return nil, fmt.Errorf("no timeseries widget in explore response")
	}

	multilineBody, err := deps.trendsCall(ctx, trendsAPIBase+"/widgetdata/multiline", map[string]string{
		"hl":    "en-US",
		"tz":    "360",
		"req":   string(widgetReq),
		"token": token,
	})
	if err != nil {
		return nil, err
	}

	var multiline struct {
		Default struct {
			TimelineData []struct {
				Value []float64 `json:"value"`
			} `json:"timelineData"`
		} `json:"default"`
	}
	if err := json.Unmarshal(multilineBody, &multiline); err != nil {
		return nil, err
	}

	series := make(map[string][]float64, len(terms))
	for _, point := range multiline.Default.TimelineData {
		for i, term := range terms {
			if i < len(point.Value) {
				series[term] = append(series[term], point.Value[i])
			}
		}
	}
	return series, nil
}

// trendsCall fetches a trends endpoint and strips the )]}' prefix. The
// responses are not valid JSON, so they surface from the client under the
// "text" key.
func (deps *toolDeps) trendsCall(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	data := deps.client.request(ctx, outboundRequest{
		Method:  "GET",
		URL:     url,
		Params:  params,
		Headers: browserHeaders(),
	})
	if data == nil {
		return nil, fmt.Errorf("trends endpoint unavailable")
	}
	raw := strField(data, "text")
	if raw == "" {
		// already valid JSON, re-encode it
		return json.Marshal(data)
	}
	if idx := strings.IndexAny(raw, "{["); idx >= 0 {
		return []byte(raw[idx:]), nil
	}
	return nil, fmt.Errorf("unrecognized trends payload")
}
