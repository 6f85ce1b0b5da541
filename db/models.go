package db

import "time"

// DefaultTitle is the sentinel title a conversation keeps until the title
// generator renames it.
const DefaultTitle = "New Conversation"

// Message roles
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

// Fetch result sources
const (
	FetchSourceUserLink = "user_link"
	FetchSourceSearch   = "search"
)

// Fetch result statuses
const (
	FetchStatusPending = "pending"
	FetchStatusSuccess = "success"
	FetchStatusFailed  = "failed"
)

// Message link kinds
const (
	LinkKindSearchResult = "search_result"
	LinkKindFetchResult  = "fetch_result"
)

// Conversation represents a chat conversation
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single message in a conversation
type Message struct {
	ID             int64     `json:"id"`
	ConversationID *int64    `json:"conversation_id"`
	Role           string    `json:"role"` // "user", "model" or "assistant"
	SenderID       *int64    `json:"sender_id"`
	Content        string    `json:"content"`
	TokensUsed     *int      `json:"tokens_used"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReasoningStep is a chunk of model "thinking" linked to a message
type ReasoningStep struct {
	ID           int64     `json:"id"`
	MessageID    int64     `json:"message_id"`
	DisplayIndex int       `json:"display_index"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchDecision records the enrichment pipeline's search judgment for a message
type SearchDecision struct {
	ID             int64     `json:"id"`
	MessageID      int64     `json:"message_id"`
	Reasoning      string    `json:"reasoning"`
	SearchNeeded   bool      `json:"search_needed"`
	SearchQuery    string    `json:"search_query"`
	SearchResultID *int64    `json:"search_result_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchResult records one search execution. TotalResults is null until the
// search completes.
type SearchResult struct {
	ID           int64     `json:"id"`
	Query        string    `json:"query"`
	Engine       string    `json:"engine"`
	TotalResults *int      `json:"total_results"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FetchResult records one fetched URL, deduped by content hash
type FetchResult struct {
	ID            int64     `json:"id"`
	Source        string    `json:"source"` // "user_link" or "search"
	SourceID      *int64    `json:"source_id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StoragePath   string    `json:"storage_path"`
	DeclaredType  string    `json:"declared_type"`
	ConvertedType string    `json:"converted_type"`
	Status        string    `json:"status"` // "pending", "success" or "failed"
	Error         string    `json:"error"`
	ContentHash   string    `json:"content_hash"`
	RawSize       int64     `json:"raw_size"`
	ConvertedSize int64     `json:"converted_size"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileAttachment is a stored blob descriptor. Multiple rows may share one
// storage path when their content hashes match.
type FileAttachment struct {
	ID          int64     `json:"id"`
	MessageID   int64     `json:"message_id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mime_type"`
	StoragePath string    `json:"storage_path"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Setting represents a configuration setting
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
