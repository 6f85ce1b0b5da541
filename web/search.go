// Package web provides the search and URL-fetch collaborators used by the
// enrichment pipeline.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// SearchHit is a single search result
type SearchHit struct {
	Title   string
	URL     string
	Snippet string
}

// SearchEngine abstracts the web search backend
type SearchEngine interface {
	// Search runs a query and returns up to maxResults hits
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)

	// Name returns the engine identifier stored on search records
	Name() string
}

// DuckDuckGo HTML parsing patterns, compiled once at startup
var (
	ddgTitleRegex   = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.+?)</a>`)
	ddgSnippetRegex = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.+?)</a>`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGoEngine implements SearchEngine using the DuckDuckGo HTML
// endpoint, which needs no API key.
type DuckDuckGoEngine struct {
	BaseURL string
	Timeout time.Duration
	client  *http.Client
}

// NewDuckDuckGoEngine creates a DuckDuckGo search engine
func NewDuckDuckGoEngine(baseURL string) *DuckDuckGoEngine {
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html/"
	}
	timeout := 15 * time.Second
	return &DuckDuckGoEngine{
		BaseURL: baseURL,
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
}

// Name returns the engine identifier
func (e *DuckDuckGoEngine) Name() string {
	return "duckduckgo"
}

// Search performs a DuckDuckGo HTML search
func (e *DuckDuckGoEngine) Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if maxResults < 1 {
		maxResults = 5
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	searchURL := e.BaseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// Limit to 5MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	hits := parseDuckDuckGoHTML(string(body))
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	return hits, nil
}

// parseDuckDuckGoHTML extracts search hits from DuckDuckGo result HTML
func parseDuckDuckGoHTML(html string) []SearchHit {
	var hits []SearchHit

	titleMatches := ddgTitleRegex.FindAllStringSubmatch(html, 30)
	snippetMatches := ddgSnippetRegex.FindAllStringSubmatch(html, 30)

	for i, match := range titleMatches {
		if len(match) < 3 {
			continue
		}

		rawURL := strings.ReplaceAll(match[1], "&amp;", "&")

		// Unwrap DuckDuckGo's redirect URL
		actualURL := extractActualURL(rawURL)
		if actualURL == "" {
			continue
		}

		title := cleanHTML(match[2])
		if title == "" {
			continue
		}

		snippet := ""
		if i < len(snippetMatches) && len(snippetMatches[i]) >= 2 {
			snippet = cleanHTML(snippetMatches[i][1])
		}

		hits = append(hits, SearchHit{
			Title:   title,
			URL:     actualURL,
			Snippet: snippet,
		})

		if len(hits) >= 20 {
			break
		}
	}

	return hits
}

// extractActualURL extracts the real URL from DuckDuckGo's redirect wrapper
// (//duckduckgo.com/l/?uddg=ENCODED_URL)
func extractActualURL(ddgURL string) string {
	if strings.Contains(ddgURL, "uddg=") {
		if strings.HasPrefix(ddgURL, "//") {
			ddgURL = "https:" + ddgURL
		}
		parsed, err := url.Parse(ddgURL)
		if err != nil {
			return ""
		}
		if encoded := parsed.Query().Get("uddg"); encoded != "" {
			return encoded
		}
	}

	if strings.HasPrefix(ddgURL, "http://") || strings.HasPrefix(ddgURL, "https://") {
		return ddgURL
	}

	return ""
}

// cleanHTML removes tags, decodes common entities and collapses whitespace
func cleanHTML(html string) string {
	text := htmlTagRegex.ReplaceAllString(html, "")
	text = decodeHTMLEntities(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// decodeHTMLEntities decodes the entities that show up in search results
func decodeHTMLEntities(text string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#x27;", "'",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return replacer.Replace(text)
}
