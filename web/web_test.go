package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const ddgFixture = `
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fparis">Paris Weather &amp; Forecast</a>
  </h2>
  <a class="result__snippet" href="#">Current <b>weather</b> in Paris.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="https://example.org/direct">Direct Result</a>
  </h2>
  <a class="result__snippet" href="#">A direct link.</a>
</div>
`

func TestParseDuckDuckGoHTML(t *testing.T) {
	hits := parseDuckDuckGoHTML(ddgFixture)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}

	if hits[0].URL != "https://example.com/paris" {
		t.Errorf("redirect URL not unwrapped: %s", hits[0].URL)
	}
	if hits[0].Title != "Paris Weather & Forecast" {
		t.Errorf("title not cleaned: %q", hits[0].Title)
	}
	if !strings.Contains(hits[0].Snippet, "weather in Paris") {
		t.Errorf("snippet not cleaned: %q", hits[0].Snippet)
	}

	if hits[1].URL != "https://example.org/direct" {
		t.Errorf("direct URL mangled: %s", hits[1].URL)
	}
}

func TestSearchAgainstTestServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("q"); q != "paris weather" {
			t.Errorf("unexpected query: %q", q)
		}
		w.Write([]byte(ddgFixture))
	}))
	defer server.Close()

	engine := NewDuckDuckGoEngine(server.URL + "/")
	hits, err := engine.Search(context.Background(), "paris weather", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("maxResults not honored, got %d hits", len(hits))
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	engine := NewDuckDuckGoEngine("http://localhost:1/")
	if _, err := engine.Search(context.Background(), "  ", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestFetchConvertsHTML(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head>
<title>Paris Guide</title>
<meta name="description" content="All about Paris">
<style>body { color: red; }</style>
<script>alert("hi")</script>
</head><body>
<h1>Paris</h1>
<p>The capital of France.</p>
<h2>Weather</h2>
<p>Mild in spring.</p>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	got, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if got.Title != "Paris Guide" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Description != "All about Paris" {
		t.Errorf("description = %q", got.Description)
	}
	if got.DeclaredType != "text/html" {
		t.Errorf("declared type = %q", got.DeclaredType)
	}
	if got.ConvertedType != "text/markdown" {
		t.Errorf("converted type = %q", got.ConvertedType)
	}
	if !strings.Contains(got.Content, "# Paris") {
		t.Errorf("h1 not converted to markdown heading:\n%s", got.Content)
	}
	if !strings.Contains(got.Content, "## Weather") {
		t.Errorf("h2 not converted to markdown heading:\n%s", got.Content)
	}
	if strings.Contains(got.Content, "alert") || strings.Contains(got.Content, "color: red") {
		t.Errorf("script/style leaked into content:\n%s", got.Content)
	}
	if !strings.Contains(got.Content, "The capital of France.") {
		t.Errorf("body text missing:\n%s", got.Content)
	}
}

func TestFetchPassesThroughPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("just text"))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	got, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.Content != "just text" {
		t.Errorf("plain text should pass through, got %q", got.Content)
	}
	if got.ConvertedType != "text/plain" {
		t.Errorf("converted type = %q", got.ConvertedType)
	}
}

func TestFetchReportsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, 0)
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}
