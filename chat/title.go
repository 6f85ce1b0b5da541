package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"light-chat-engine/db"
	"light-chat-engine/llm"
)

// GenerateTitle creates a short title for the conversation from its first
// turn and stores it. The summary model override is consulted first, then
// the first enabled provider.
func (e *Engine) GenerateTitle(ctx context.Context, conversationID int64) (string, error) {
	provider := e.titleProvider(nil)
	if provider == nil {
		var err error
		provider, err = e.defaultProvider()
		if err != nil {
			return "", err
		}
	}
	return e.generateTitle(ctx, conversationID, provider)
}

func (e *Engine) generateTitle(ctx context.Context, conversationID int64, provider llm.Provider) (string, error) {
	stored, err := e.db.ListMessages(conversationID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(stored) == 0 {
		return "", fmt.Errorf("conversation %d has no messages", conversationID)
	}

	// First user/assistant turn is enough context for a title
	var msgs []llm.Message
	for _, m := range stored {
		role := "assistant"
		if m.Role == db.RoleUser {
			role = "user"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
		if len(msgs) == 2 {
			break
		}
	}

	title, err := provider.GenerateTitle(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	if err := e.db.UpdateConversationTitle(conversationID, title); err != nil {
		return "", err
	}

	e.bus.Publish(Event{Kind: EventTitleUpdated, ConversationID: conversationID, Title: title})
	return title, nil
}

// maybeGenerateTitle renames the conversation after a successful completion
// when the title is still the placeholder. Failures only log; a missing
// title never fails the generation.
func (e *Engine) maybeGenerateTitle(conversationID int64, fallback llm.Provider) {
	conv, err := e.db.GetConversation(conversationID)
	if err != nil {
		e.logger.Warn("Title check failed for conversation %d: %v", conversationID, err)
		return
	}
	if conv.Title != db.DefaultTitle {
		return
	}

	provider := e.titleProvider(fallback)
	if provider == nil {
		return
	}
	if _, err := e.generateTitle(context.Background(), conversationID, provider); err != nil {
		e.logger.Warn("Title generation skipped for conversation %d: %v", conversationID, err)
	}
}

// titleProvider resolves the global summary model override, stored as
// "provider" or "provider/model", falling back to the given provider.
func (e *Engine) titleProvider(fallback llm.Provider) llm.Provider {
	raw, err := e.db.GetSetting(db.SettingSummaryModel)
	if err != nil || raw == "" {
		return fallback
	}

	kind, model := raw, ""
	if idx := strings.Index(raw, "/"); idx > 0 {
		kind, model = raw[:idx], raw[idx+1:]
	}

	provider, err := e.providerFor(kind, model)
	if err != nil {
		e.logger.Warn("Summary model %q unusable: %v", raw, err)
		return fallback
	}
	return provider
}

// defaultProvider picks the first enabled provider in name order
func (e *Engine) defaultProvider() (llm.Provider, error) {
	kinds := make([]string, 0, len(e.cfg.LLMProviders))
	for kind := range e.cfg.LLMProviders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		if e.cfg.LLMProviders[kind].Enabled {
			return e.providerFor(kind, "")
		}
	}
	return nil, errors.New("no enabled provider configured")
}
