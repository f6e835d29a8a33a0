package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient() *apiClient {
	c := newAPIClient()
	c.backoff = time.Millisecond
	return c
}

func TestRequestGivesUpOnPersistentServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	data := fastClient().request(context.Background(), outboundRequest{Method: "GET", URL: srv.URL})
	if data != nil {
		t.Fatalf("expected nil after exhausted retries, got %v", data)
	}
	if got := atomic.LoadInt32(&hits); got != maxRequestAttempts {
		t.Fatalf("expected %d attempts, got %d", maxRequestAttempts, got)
	}
}

func TestRequestDoesNotRetryClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	data := fastClient().request(context.Background(), outboundRequest{Method: "GET", URL: srv.URL})
	if data != nil {
		t.Fatalf("expected nil for 404, got %v", data)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestRequestRetriesAfterTooManyRequests(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	data := fastClient().request(context.Background(), outboundRequest{Method: "GET", URL: srv.URL})
	if data == nil {
		t.Fatal("expected a result after retry")
	}
	if ok, _ := data["ok"].(bool); !ok {
		t.Fatalf("unexpected body %v", data)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestRequestDecodesArrayUnderItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"a":1},{"a":2}]`))
	}))
	defer srv.Close()

	data := fastClient().request(context.Background(), outboundRequest{Method: "GET", URL: srv.URL})
	items := arrayItems(data)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", data)
	}
}

func TestRequestWrapsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text payload"))
	}))
	defer srv.Close()

	data := fastClient().request(context.Background(), outboundRequest{Method: "GET", URL: srv.URL})
	if got := strField(data, "text"); got != "plain text payload" {
		t.Fatalf("expected text wrapper, got %v", data)
	}
}

func TestRequestStopsWhenCallerCancels(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newAPIClient()
	c.backoff = time.Second
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	data := c.request(ctx, outboundRequest{Method: "GET", URL: srv.URL})
	if data != nil {
		t.Fatalf("expected nil, got %v", data)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("cancellation did not interrupt backoff, took %v", elapsed)
	}
}

func TestRequestSendsQueryParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "golang" {
			t.Errorf("missing query param, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer token123" {
			t.Errorf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	fastClient().request(context.Background(), outboundRequest{
		Method:  "GET",
		URL:     srv.URL,
		Params:  map[string]string{"q": "golang"},
		Headers: map[string]string{"Authorization": "Bearer token123"},
	})
}

func TestBuildRequestURLMergesParams(t *testing.T) {
	got, err := buildRequestURL("https://example.com/search?existing=1", map[string]string{"q": "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/search?existing=1&q=test" {
		t.Fatalf("unexpected url %s", got)
	}
}
