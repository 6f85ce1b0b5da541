package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// FetchedPage is the converted content of one fetched URL plus extraction
// metadata.
type FetchedPage struct {
	URL           string
	Title         string
	Description   string
	Content       string // markdown-normalized text
	DeclaredType  string // Content-Type the server sent
	ConvertedType string // type of Content after conversion
	RawSize       int64
}

// Fetcher downloads URLs and normalizes their content to markdown-ish text
type Fetcher struct {
	Timeout time.Duration
	MaxSize int64
	client  *http.Client
}

// HTML extraction patterns, compiled once
var (
	titleTagRegex   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRegex   = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["']([^"']*)["']`)
	headingRegex    = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	scriptRegex     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRegex      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	blockCloseRegex = regexp.MustCompile(`(?i)</(p|div|li|tr|section|article|blockquote)>`)
	brRegex         = regexp.MustCompile(`(?i)<br\s*/?>`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

// NewFetcher creates a fetcher with sane limits
func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxSize == 0 {
		maxSize = 5 * 1024 * 1024 // 5MB
	}
	return &Fetcher{
		Timeout: timeout,
		MaxSize: maxSize,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch downloads a URL and converts it to markdown-normalized text
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*FetchedPage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	declaredType := resp.Header.Get("Content-Type")
	if idx := strings.Index(declaredType, ";"); idx > 0 {
		declaredType = strings.TrimSpace(declaredType[:idx])
	}

	page := &FetchedPage{
		URL:          pageURL,
		DeclaredType: declaredType,
		RawSize:      int64(len(raw)),
	}

	body := string(raw)
	if strings.Contains(declaredType, "html") || looksLikeHTML(body) {
		page.Title = extractTitle(body)
		page.Description = extractDescription(body)
		page.Content = htmlToMarkdown(body)
		page.ConvertedType = "text/markdown"
	} else {
		// Plain text, JSON etc. pass through unchanged
		page.Content = body
		page.ConvertedType = declaredType
		if page.ConvertedType == "" {
			page.ConvertedType = "text/plain"
		}
	}

	return page, nil
}

// looksLikeHTML is a cheap sniff for servers that lie about content type
func looksLikeHTML(body string) bool {
	head := strings.ToLower(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// extractTitle pulls the <title> text out of an HTML document
func extractTitle(html string) string {
	if m := titleTagRegex.FindStringSubmatch(html); len(m) > 1 {
		return cleanHTML(m[1])
	}
	return ""
}

// extractDescription pulls the meta description out of an HTML document
func extractDescription(html string) string {
	if m := metaDescRegex.FindStringSubmatch(html); len(m) > 1 {
		return cleanHTML(m[1])
	}
	return ""
}

// htmlToMarkdown converts HTML to markdown-normalized text: headings become
// markdown headings, block boundaries become newlines, everything else is
// stripped to plain text.
func htmlToMarkdown(html string) string {
	text := scriptRegex.ReplaceAllString(html, "")
	text = styleRegex.ReplaceAllString(text, "")

	// Headings -> markdown headings
	text = headingRegex.ReplaceAllStringFunc(text, func(match string) string {
		m := headingRegex.FindStringSubmatch(match)
		level := int(m[1][0] - '0')
		return "\n" + strings.Repeat("#", level) + " " + cleanHTML(m[2]) + "\n"
	})

	// Preserve block boundaries before stripping tags
	text = blockCloseRegex.ReplaceAllString(text, "\n")
	text = brRegex.ReplaceAllString(text, "\n")
	text = htmlTagRegex.ReplaceAllString(text, "")
	text = decodeHTMLEntities(text)

	// Collapse horizontal whitespace per line, keep line structure
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
