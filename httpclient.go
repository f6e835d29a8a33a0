package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ===== resilient outbound client =====

const (
	defaultRequestTimeout = 30 * time.Second
	apifyRequestTimeout   = 90 * time.Second
	maxRequestAttempts    = 3
	retryBaseBackoff      = 1 * time.Second
)

// apiClient is the single outbound path for every tool handler, so the
// retry/backoff policy lives in exactly one place. Failures are swallowed:
// callers receive nil and turn it into a user-facing failure message.
type apiClient struct {
	http    *http.Client
	backoff time.Duration
}

func newAPIClient() *apiClient {
	return &apiClient{
		http: &http.Client{
			// per-request deadlines come from the caller's context
			Timeout: 0,
		},
		backoff: retryBaseBackoff,
	}
}

type outboundRequest struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers map[string]string
	Body    any
	Timeout time.Duration
}

// request performs an outbound call with up to three attempts. 429 and 5xx
// responses back off exponentially (base 1s, doubling); other 4xx return
// nil immediately; transport timeouts retry on a fixed 1s backoff. A JSON
// object body decodes to a map, a JSON array decodes under "items", and
// non-JSON bodies come back as {"text": raw}. Returns nil once attempts
// are exhausted; never returns an error.
func (c *apiClient) request(ctx context.Context, req outboundRequest) map[string]any {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	target, err := buildRequestURL(req.URL, req.Params)
	if err != nil {
		log.Printf("<client> bad request url %q: %v", req.URL, err)
		return nil
	}

	delay := c.backoff
	for attempt := 0; attempt < maxRequestAttempts; attempt++ {
		if attempt > 0 && !c.sleep(ctx, delay) {
			return nil
		}

		result, retry := c.attempt(ctx, req.Method, target, req.Headers, req.Body, timeout)
		switch retry {
		case noRetry:
			return result
		case retryExponential:
			if attempt > 0 {
				delay *= 2
			}
		case retryFixed:
			delay = c.backoff
		}
	}
	log.Printf("<client> giving up on %s after %d attempts", target, maxRequestAttempts)
	return nil
}

type retryKind int

const (
	noRetry retryKind = iota
	retryExponential
	retryFixed
)

func (c *apiClient) attempt(ctx context.Context, method, target string, headers map[string]string, body any, timeout time.Duration) (map[string]any, retryKind) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			log.Printf("<client> encode body for %s: %v", target, err)
			return nil, noRetry
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, strings.ToUpper(method), target, reader)
	if err != nil {
		log.Printf("<client> build request for %s: %v", target, err)
		return nil, noRetry
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// caller gave up; do not keep the call alive in the background
			return nil, noRetry
		}
		log.Printf("<client> transport error for %s: %v", target, err)
		return nil, retryFixed
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		log.Printf("<client> HTTP %d from %s, retrying", resp.StatusCode, target)
		io.Copy(io.Discard, resp.Body)
		return nil, retryExponential
	}
	if resp.StatusCode >= 400 {
		log.Printf("<client> HTTP %d from %s", resp.StatusCode, target)
		return nil, noRetry
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, noRetry
		}
		log.Printf("<client> read body from %s: %v", target, err)
		return nil, retryFixed
	}
	return decodeResponseBody(raw), noRetry
}

func (c *apiClient) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func buildRequestURL(rawURL string, params map[string]string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("missing scheme or host")
	}
	if len(params) > 0 {
		query := parsed.Query()
		for k, v := range params {
			query.Set(k, v)
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

// decodeResponseBody parses a JSON object, wraps a JSON array under "items",
// and falls back to {"text": raw} for everything else.
func decodeResponseBody(raw []byte) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			return obj
		}
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return map[string]any{"items": items}
		}
	}
	return map[string]any{"text": string(raw)}
}
