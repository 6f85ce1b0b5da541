package chat

import (
	"fmt"
	"strings"

	"light-chat-engine/llm"
)

const decisionSystemPrompt = `You decide whether answering a user message requires fresh information from the web.
Respond with a JSON object only, no other text:
{"reasoning": "<one sentence explaining the judgment>", "search_needed": true or false, "search_query": "<query when search is needed, otherwise empty>"}
Search is needed for current events, prices, weather, schedules, product releases and anything else that changes over time. Search is not needed for general knowledge, coding help, writing tasks or casual conversation.`

// decisionPrompt wraps the raw user text in the fixed search-judgment prompt
func decisionPrompt(userText string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: decisionSystemPrompt},
		{Role: "user", Content: userText},
	}
}

// maxEnrichmentChars caps how much of each fetched page is injected into
// the prompt.
const maxEnrichmentChars = 4000

// formatEnrichment renders fetched pages as a context block placed before
// the final user turn.
func formatEnrichment(pages []enrichedPage) string {
	var b strings.Builder
	b.WriteString("Web content gathered for this message:\n")

	for _, p := range pages {
		title := p.Result.Title
		if title == "" {
			title = p.Result.URL
		}
		fmt.Fprintf(&b, "\n## %s\nSource: %s\n\n", title, p.Result.URL)

		content := p.Content
		if len(content) > maxEnrichmentChars {
			content = content[:maxEnrichmentChars]
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String()
}
