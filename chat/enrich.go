package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"light-chat-engine/db"
	"light-chat-engine/llm"
	"light-chat-engine/store"
	"light-chat-engine/utils"
	"light-chat-engine/web"
)

// enrichedPage pairs a fetch record with its in-memory content, ready to be
// injected into the prompt.
type enrichedPage struct {
	Result  *db.FetchResult
	Content string
}

type searchDecisionOutput struct {
	Reasoning    string `json:"reasoning"`
	SearchNeeded bool   `json:"search_needed"`
	SearchQuery  string `json:"search_query"`
}

type urlSource struct {
	source   string
	sourceID *int64
}

// enrich runs the three enrichment stages for one user message: search
// decision, search, and concurrent URL resolution. Every stage degrades
// independently; enrichment never fails the generation.
func (e *Engine) enrich(ctx context.Context, conversationID int64, userMsg *db.Message, opts SendOptions, provider llm.Provider) []enrichedPage {
	urls := make(map[string]urlSource)
	for _, u := range opts.URLs {
		urls[u] = urlSource{source: db.FetchSourceUserLink}
	}

	if opts.SearchEnabled && e.search != nil {
		decision := e.decide(ctx, conversationID, userMsg, provider)

		query := ""
		if decision != nil && decision.SearchNeeded {
			query = decision.SearchQuery
		}
		if query == "" {
			query = opts.FallbackQuery
		}

		if query != "" {
			hits, searchID := e.runSearch(ctx, conversationID, userMsg, decision, query)
			for _, hit := range hits {
				if _, dup := urls[hit.URL]; !dup {
					urls[hit.URL] = urlSource{source: db.FetchSourceSearch, sourceID: searchID}
				}
			}
		}
	}

	if len(urls) == 0 {
		return nil
	}
	return e.resolveURLs(ctx, conversationID, userMsg, urls)
}

// decide asks the model whether the message needs a web search and persists
// the judgment. A failed call or unparsable reply degrades to "no search"
// with the failure recorded as the reasoning.
func (e *Engine) decide(ctx context.Context, conversationID int64, userMsg *db.Message, provider llm.Provider) *db.SearchDecision {
	e.bus.Publish(Event{Kind: EventDecisionStarted, ConversationID: conversationID, MessageID: userMsg.ID})

	var out searchDecisionOutput
	reply, err := provider.Chat(ctx, decisionPrompt(userMsg.Content))
	if err == nil {
		var raw string
		raw, err = ExtractJSON(reply)
		if err == nil {
			err = json.Unmarshal([]byte(raw), &out)
		}
	}
	if err != nil {
		e.logger.Warn("Search decision failed for message %d: %v", userMsg.ID, err)
		out = searchDecisionOutput{
			Reasoning: fmt.Sprintf("search decision failed: %v", err),
		}
	}

	decision, dbErr := e.db.CreateSearchDecision(userMsg.ID, out.Reasoning, out.SearchNeeded, out.SearchQuery)
	if dbErr != nil {
		e.logger.Error("Failed to save search decision: %v", dbErr)
		return nil
	}

	e.bus.Publish(Event{Kind: EventDecisionFinished, ConversationID: conversationID, MessageID: userMsg.ID, Decision: decision})
	return decision
}

// runSearch executes one search. The record is created before the search
// runs so observers see a pending state; total_results is filled in only on
// success. On failure the pending row stays as the sole artifact and the
// caller falls back to any literal URLs it already has.
func (e *Engine) runSearch(ctx context.Context, conversationID int64, userMsg *db.Message, decision *db.SearchDecision, query string) ([]web.SearchHit, *int64) {
	sr, err := e.db.CreateSearchResult(query, e.search.Name())
	if err != nil {
		e.logger.Error("Failed to create search record: %v", err)
		return nil, nil
	}

	if decision != nil {
		if err := e.db.SetDecisionSearchResult(decision.ID, sr.ID); err != nil {
			e.logger.Error("Failed to attach search to decision: %v", err)
		}
	}
	if err := e.db.LinkMessage(userMsg.ID, sr.ID, db.LinkKindSearchResult); err != nil {
		e.logger.Error("Failed to link search result: %v", err)
	}

	e.bus.Publish(Event{Kind: EventSearchStarted, ConversationID: conversationID, MessageID: userMsg.ID, SearchResult: sr})

	hits, err := e.search.Search(ctx, query, e.cfg.Search.MaxResults)
	if err != nil {
		e.logger.Warn("Search failed for %q: %v", query, err)
		e.bus.Publish(Event{Kind: EventSearchFinished, ConversationID: conversationID, MessageID: userMsg.ID, SearchResult: sr, Err: err.Error()})
		return nil, &sr.ID
	}

	total := len(hits)
	if err := e.db.UpdateSearchResultTotal(sr.ID, total); err != nil {
		e.logger.Error("Failed to update search total: %v", err)
	}
	sr.TotalResults = &total

	e.bus.Publish(Event{Kind: EventSearchFinished, ConversationID: conversationID, MessageID: userMsg.ID, SearchResult: sr})
	return hits, &sr.ID
}

// resolveURLs fetches every URL concurrently. Each URL surfaces to
// observers as soon as it completes, in completion order; the aggregate
// completion event fires only after all of them finished.
func (e *Engine) resolveURLs(ctx context.Context, conversationID int64, userMsg *db.Message, urls map[string]urlSource) []enrichedPage {
	var (
		mu    sync.Mutex
		pages []enrichedPage
		wg    sync.WaitGroup
	)

	for pageURL, src := range urls {
		pageURL, src := pageURL, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer utils.RecoverFromPanic(e.logger, "url fetch")

			page := e.resolveURL(ctx, conversationID, userMsg, pageURL, src)
			if page != nil {
				mu.Lock()
				pages = append(pages, *page)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	e.bus.Publish(Event{Kind: EventFetchComplete, ConversationID: conversationID, MessageID: userMsg.ID})
	return pages
}

// resolveURL fetches one URL and resolves it through the dedup layer. Fetch
// results are shared facts: a successful row with the same content hash is
// reused and linked instead of creating a sibling. Failures are isolated to
// this URL.
func (e *Engine) resolveURL(ctx context.Context, conversationID int64, userMsg *db.Message, pageURL string, src urlSource) *enrichedPage {
	progress := func(fr *db.FetchResult) {
		e.bus.Publish(Event{Kind: EventFetchProgress, ConversationID: conversationID, MessageID: userMsg.ID, FetchResult: fr})
	}

	page, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		e.logger.Warn("Fetch failed for %s: %v", pageURL, err)
		failed, dbErr := e.db.CreateFetchResult(&db.FetchResult{
			Source:   src.source,
			SourceID: src.sourceID,
			URL:      pageURL,
			Status:   db.FetchStatusFailed,
			Error:    err.Error(),
		})
		if dbErr != nil {
			e.logger.Error("Failed to record failed fetch: %v", dbErr)
			return nil
		}
		e.linkFetch(userMsg.ID, failed.ID)
		progress(failed)
		return nil
	}

	content := []byte(page.Content)
	hash := store.HashBytes(content)

	existing, err := e.db.FindFetchResultByHash(hash)
	if err != nil {
		e.logger.Error("Fetch dedup lookup failed: %v", err)
	}
	if existing != nil {
		e.linkFetch(userMsg.ID, existing.ID)
		progress(existing)
		return &enrichedPage{Result: existing, Content: page.Content}
	}

	ext := ".txt"
	if page.ConvertedType == "text/markdown" {
		ext = ".md"
	}
	path, err := e.store.StoreIfAbsent(hash, content, ext)
	if err != nil {
		e.logger.Error("Failed to store fetched content for %s: %v", pageURL, err)
		return nil
	}

	fr, err := e.db.CreateFetchResult(&db.FetchResult{
		Source:        src.source,
		SourceID:      src.sourceID,
		URL:           pageURL,
		Title:         page.Title,
		Description:   page.Description,
		StoragePath:   path,
		DeclaredType:  page.DeclaredType,
		ConvertedType: page.ConvertedType,
		Status:        db.FetchStatusSuccess,
		ContentHash:   hash,
		RawSize:       page.RawSize,
		ConvertedSize: int64(len(content)),
	})
	if err != nil {
		e.logger.Error("Failed to save fetch result for %s: %v", pageURL, err)
		return nil
	}

	e.linkFetch(userMsg.ID, fr.ID)
	progress(fr)
	return &enrichedPage{Result: fr, Content: page.Content}
}

func (e *Engine) linkFetch(messageID, fetchID int64) {
	if err := e.db.LinkMessage(messageID, fetchID, db.LinkKindFetchResult); err != nil {
		e.logger.Error("Failed to link fetch result %d: %v", fetchID, err)
	}
}
