package chat

import (
	"context"
	"fmt"
	"strings"

	"light-chat-engine/db"
	"light-chat-engine/llm"
	"light-chat-engine/store"
	"light-chat-engine/utils"
	"light-chat-engine/web"
)

// SendOptions control one generation
type SendOptions struct {
	Provider      string // provider kind: "openai", "claude", "gemini", "ollama"
	Model         string // optional model override, default from config
	SystemPrompt  string
	SearchEnabled bool
	FallbackQuery string // forces a search with this query when the decision declines
	URLs          []string
	Attachments   []llm.Attachment
	SenderID      *int64 // assistant id when the reply belongs to a named assistant
}

// Engine runs the generation pipeline. One Send spawns one independent
// generation task; progress and outcomes are reported through the event
// bus, never back to the caller.
type Engine struct {
	db       *db.DB
	store    *store.Store
	cfg      *utils.Config
	logger   *utils.Logger
	search   web.SearchEngine
	fetcher  *web.Fetcher
	registry *Registry
	bus      *Bus

	newProvider func(kind string, config llm.Config) (llm.Provider, error)
}

// NewEngine wires the pipeline. searchEngine may be nil when search is
// disabled.
func NewEngine(database *db.DB, blobs *store.Store, cfg *utils.Config, logger *utils.Logger, searchEngine web.SearchEngine, fetcher *web.Fetcher) *Engine {
	return &Engine{
		db:          database,
		store:       blobs,
		cfg:         cfg,
		logger:      logger,
		search:      searchEngine,
		fetcher:     fetcher,
		registry:    NewRegistry(),
		bus:         NewBus(),
		newProvider: llm.NewProvider,
	}
}

// Subscribe returns the pipeline event stream and an unsubscribe function
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.bus.Subscribe()
}

// Send persists the user message, registers a generation and spawns the
// pipeline task. It returns as soon as the user message is saved.
// Configuration errors fail here, before any side effect; everything
// downstream only surfaces through events.
func (e *Engine) Send(conversationID int64, content string, opts SendOptions) (*db.Message, error) {
	provider, err := e.providerFor(opts.Provider, opts.Model)
	if err != nil {
		return nil, err
	}

	userMsg, err := e.db.CreateMessage(&conversationID, db.RoleUser, opts.SenderID, content, nil)
	if err != nil {
		return nil, err
	}

	for _, att := range opts.Attachments {
		e.saveAttachment(userMsg.ID, att)
	}

	ctx, generationID := e.registry.Start(conversationID)
	utils.SafeGo(e.logger, "generation "+generationID, func() {
		e.run(ctx, generationID, conversationID, userMsg, provider, opts)
	})

	return userMsg, nil
}

// Stop requests cancellation of the conversation's in-flight generation.
// The stopped event fires synchronously when the request is accepted; the
// generation's own terminal event follows once it winds down.
func (e *Engine) Stop(conversationID int64) bool {
	if !e.registry.RequestCancel(conversationID) {
		return false
	}
	e.bus.Publish(Event{Kind: EventGenerationStopped, ConversationID: conversationID})
	return true
}

// run is one generation task, from enrichment to terminal state. The
// registry entry is removed exactly once, whatever the outcome.
func (e *Engine) run(ctx context.Context, generationID string, conversationID int64, userMsg *db.Message, provider llm.Provider, opts SendOptions) {
	defer e.registry.End(conversationID, generationID)

	pages := e.enrich(ctx, conversationID, userMsg, opts, provider)

	history, err := e.buildHistory(conversationID, userMsg, opts, pages)
	if err != nil {
		e.logger.Error("Generation aborted for conversation %d: %v", conversationID, err)
		e.bus.Publish(Event{Kind: EventGenerationComplete, ConversationID: conversationID, MessageID: userMsg.ID, Err: err.Error()})
		return
	}

	reasoningStarted := false
	res := drainStream(ctx, provider, history, func(unit llm.StreamResponse) bool {
		if unit.Reasoning != "" && !reasoningStarted {
			reasoningStarted = true
			e.bus.Publish(Event{Kind: EventReasoningStarted, ConversationID: conversationID, MessageID: userMsg.ID})
		}
		if unit.Content != "" || unit.Reasoning != "" {
			e.bus.Publish(Event{Kind: EventStreamChunk, ConversationID: conversationID, Chunk: unit.Content, Reasoning: unit.Reasoning})
		}
		return true
	})

	e.finish(conversationID, userMsg, provider, opts, res)
}

// finish classifies the terminal state and commits the outcome
func (e *Engine) finish(conversationID int64, userMsg *db.Message, provider llm.Provider, opts SendOptions, res streamResult) {
	cancelled := res.Outcome == streamCancelled

	if res.Outcome == streamFailed {
		e.logger.Error("Generation failed for conversation %d: %v", conversationID, res.Err)
		e.bus.Publish(Event{Kind: EventGenerationComplete, ConversationID: conversationID, MessageID: userMsg.ID, Err: res.Err.Error()})
		return
	}

	if strings.TrimSpace(res.Text) == "" {
		// Nothing worth saving. Empty assistant messages break providers
		// that require non-empty history entries.
		e.bus.Publish(Event{Kind: EventGenerationComplete, ConversationID: conversationID, MessageID: userMsg.ID, Cancelled: cancelled})
		return
	}

	role := db.RoleModel
	if opts.SenderID != nil {
		role = db.RoleAssistant
	}
	assistant, err := e.db.CreateMessage(&conversationID, role, opts.SenderID, res.Text, nil)
	if err != nil {
		e.logger.Error("Failed to save assistant message: %v", err)
		e.bus.Publish(Event{Kind: EventGenerationComplete, ConversationID: conversationID, MessageID: userMsg.ID, Cancelled: cancelled, Err: err.Error()})
		return
	}

	// Reasoning rows only after the message exists
	if len(res.Reasoning) > 0 {
		if _, err := e.db.CreateReasoningSteps(assistant.ID, res.Reasoning); err != nil {
			e.logger.Error("Failed to save reasoning steps: %v", err)
		}
	}

	e.bus.Publish(Event{Kind: EventGenerationComplete, ConversationID: conversationID, MessageID: userMsg.ID, Assistant: assistant, Cancelled: cancelled})

	if !cancelled {
		utils.SafeGo(e.logger, "title generation", func() {
			e.maybeGenerateTitle(conversationID, provider)
		})
	}
}

// buildHistory assembles the provider-agnostic message history: system
// prompt, prior turns, gathered web context, then the current user turn
// with its attachments.
func (e *Engine) buildHistory(conversationID int64, userMsg *db.Message, opts SendOptions, pages []enrichedPage) ([]llm.Message, error) {
	stored, err := e.db.ListMessages(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var history []llm.Message
	if opts.SystemPrompt != "" {
		history = append(history, llm.Message{Role: "system", Content: opts.SystemPrompt})
	}

	var prior []llm.Message
	for _, m := range stored {
		if m.ID == userMsg.ID {
			continue
		}
		role := "assistant"
		if m.Role == db.RoleUser {
			role = "user"
		}
		prior = append(prior, llm.Message{Role: role, Content: m.Content})
	}
	if max := e.cfg.Data.MaxHistory; max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}
	history = append(history, prior...)

	if len(pages) > 0 {
		history = append(history, llm.Message{Role: "system", Content: formatEnrichment(pages)})
	}

	history = append(history, llm.Message{Role: "user", Content: userMsg.Content, Attachments: opts.Attachments})
	return history, nil
}

// saveAttachment stores the attachment blob and its metadata row.
// Attachments are per-message facts: every use gets a fresh row, sharing
// the blob when the content hash matches.
func (e *Engine) saveAttachment(messageID int64, att llm.Attachment) {
	hash := store.HashBytes(att.Data)
	ext := utils.ExtensionForAttachment(&att)

	path, err := e.store.StoreIfAbsent(hash, att.Data, ext)
	if err != nil {
		e.logger.Error("Failed to store attachment %s: %v", att.Filename, err)
		return
	}

	if _, err := e.db.CreateFileAttachment(messageID, att.Filename, int64(len(att.Data)), att.MimeType, path, hash); err != nil {
		e.logger.Error("Failed to save attachment %s: %v", att.Filename, err)
	}
}

// providerFor builds a provider from configuration
func (e *Engine) providerFor(kind, model string) (llm.Provider, error) {
	pc, ok := e.cfg.LLMProviders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", kind)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", kind)
	}
	if model == "" {
		model = pc.DefaultModel
	}

	provider, err := e.newProvider(kind, llm.Config{
		ProviderName: pc.DisplayName,
		APIKey:       pc.APIKey,
		BaseURL:      pc.BaseURL,
		Model:        model,
		Models:       pc.Models,
		MaxTokens:    pc.MaxTokens,
		Temperature:  pc.Temperature,
	})
	if err != nil {
		return nil, err
	}
	if err := provider.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", kind, err)
	}
	return provider, nil
}
