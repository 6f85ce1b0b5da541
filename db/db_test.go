package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func createTestMessage(t *testing.T, database *DB, convID int64) *Message {
	t.Helper()
	msg, err := database.CreateMessage(&convID, RoleUser, nil, "hello", nil)
	if err != nil {
		t.Fatalf("failed to create message: %v", err)
	}
	return msg
}

func TestConversationLifecycle(t *testing.T) {
	database := openTestDB(t)

	conv, err := database.CreateConversation("")
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}
	if conv.Title != DefaultTitle {
		t.Errorf("expected sentinel title %q, got %q", DefaultTitle, conv.Title)
	}

	if err := database.UpdateConversationTitle(conv.ID, "Weather in Paris"); err != nil {
		t.Fatalf("failed to update title: %v", err)
	}

	got, err := database.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("failed to get conversation: %v", err)
	}
	if got.Title != "Weather in Paris" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
}

func TestMessageNullableFields(t *testing.T) {
	database := openTestDB(t)

	// Orphan message with no conversation and no sender
	msg, err := database.CreateMessage(nil, RoleAssistant, nil, "orphan", nil)
	if err != nil {
		t.Fatalf("failed to create orphan message: %v", err)
	}

	got, err := database.GetMessage(msg.ID)
	if err != nil {
		t.Fatalf("failed to get message: %v", err)
	}
	if got.ConversationID != nil {
		t.Error("expected nil conversation ID")
	}
	if got.SenderID != nil {
		t.Error("expected nil sender ID")
	}
	if got.TokensUsed != nil {
		t.Error("expected nil token count")
	}
}

func TestSearchResultTotalTransition(t *testing.T) {
	database := openTestDB(t)

	sr, err := database.CreateSearchResult("paris weather", "duckduckgo")
	if err != nil {
		t.Fatalf("failed to create search result: %v", err)
	}

	// Pending state: total is null
	pending, err := database.GetSearchResult(sr.ID)
	if err != nil {
		t.Fatalf("failed to get search result: %v", err)
	}
	if pending.TotalResults != nil {
		t.Error("total_results should be null before the search completes")
	}

	if err := database.UpdateSearchResultTotal(sr.ID, 7); err != nil {
		t.Fatalf("failed to update total: %v", err)
	}

	done, err := database.GetSearchResult(sr.ID)
	if err != nil {
		t.Fatalf("failed to get search result: %v", err)
	}
	if done.TotalResults == nil || *done.TotalResults != 7 {
		t.Errorf("expected total_results = 7, got %v", done.TotalResults)
	}
}

// Uploading the same bytes to two messages yields two attachment rows
// sharing one storage path; fetching the same content from two messages
// yields one fetch_results row linked from both.
func TestDedupAsymmetry(t *testing.T) {
	database := openTestDB(t)

	conv, err := database.CreateConversation("")
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}
	msg1 := createTestMessage(t, database, conv.ID)
	msg2 := createTestMessage(t, database, conv.ID)

	// Attachment side: new row per use, shared storage path
	const sharedPath = "/blobs/ab/abcd.png"
	const hash = "abcd"

	att1, err := database.CreateFileAttachment(msg1.ID, "cat.png", 10, "image/png", sharedPath, hash)
	if err != nil {
		t.Fatalf("failed to create attachment: %v", err)
	}
	att2, err := database.CreateFileAttachment(msg2.ID, "cat.png", 10, "image/png", sharedPath, hash)
	if err != nil {
		t.Fatalf("failed to create attachment: %v", err)
	}
	if att1.ID == att2.ID {
		t.Error("each attachment use must create its own row")
	}
	if att1.StoragePath != att2.StoragePath {
		t.Error("attachments with the same hash must share one storage path")
	}

	// Fetch side: one row, linked from both messages
	fr, err := database.CreateFetchResult(&FetchResult{
		Source:      FetchSourceUserLink,
		URL:         "https://example.com/paris",
		Status:      FetchStatusSuccess,
		ContentHash: "feed",
		StoragePath: "/blobs/fe/feed.md",
	})
	if err != nil {
		t.Fatalf("failed to create fetch result: %v", err)
	}

	if err := database.LinkMessage(msg1.ID, fr.ID, LinkKindFetchResult); err != nil {
		t.Fatalf("failed to link message 1: %v", err)
	}

	// Second message: lookup by hash must find the existing row
	existing, err := database.FindFetchResultByHash("feed")
	if err != nil {
		t.Fatalf("failed to find fetch result by hash: %v", err)
	}
	if existing == nil || existing.ID != fr.ID {
		t.Fatal("expected to find the existing fetch result by hash")
	}
	if err := database.LinkMessage(msg2.ID, existing.ID, LinkKindFetchResult); err != nil {
		t.Fatalf("failed to link message 2: %v", err)
	}

	for _, msgID := range []int64{msg1.ID, msg2.ID} {
		linked, err := database.ListMessageFetchResults(msgID)
		if err != nil {
			t.Fatalf("failed to list fetch results: %v", err)
		}
		if len(linked) != 1 || linked[0].ID != fr.ID {
			t.Errorf("message %d should link exactly the shared fetch result", msgID)
		}
	}
}

func TestFindFetchResultByHashIgnoresFailures(t *testing.T) {
	database := openTestDB(t)

	_, err := database.CreateFetchResult(&FetchResult{
		Source:      FetchSourceSearch,
		URL:         "https://example.com/broken",
		Status:      FetchStatusFailed,
		Error:       "timeout",
		ContentHash: "dead",
	})
	if err != nil {
		t.Fatalf("failed to create fetch result: %v", err)
	}

	found, err := database.FindFetchResultByHash("dead")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found != nil {
		t.Error("failed fetches must not be reused for dedup")
	}
}

func TestReasoningStepsOrdered(t *testing.T) {
	database := openTestDB(t)

	conv, err := database.CreateConversation("")
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}
	msg := createTestMessage(t, database, conv.ID)

	_, err = database.CreateReasoningSteps(msg.ID, []string{"first", "second"})
	if err != nil {
		t.Fatalf("failed to create reasoning steps: %v", err)
	}

	steps, err := database.ListReasoningSteps(msg.ID)
	if err != nil {
		t.Fatalf("failed to list reasoning steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Content != "first" || steps[1].Content != "second" {
		t.Error("reasoning steps out of display order")
	}
	if steps[0].DisplayIndex != 0 || steps[1].DisplayIndex != 1 {
		t.Error("display indexes not sequential")
	}
}

func TestSettings(t *testing.T) {
	database := openTestDB(t)

	val, err := database.GetSetting(SettingSummaryModel)
	if err != nil {
		t.Fatalf("get unset setting failed: %v", err)
	}
	if val != "" {
		t.Errorf("unset setting should be empty, got %q", val)
	}

	if err := database.SetSetting(SettingSummaryModel, "openai/gpt-4o"); err != nil {
		t.Fatalf("failed to set setting: %v", err)
	}
	if err := database.SetSetting(SettingSummaryModel, "claude/claude-3-5-haiku-20241022"); err != nil {
		t.Fatalf("failed to overwrite setting: %v", err)
	}

	val, err = database.GetSetting(SettingSummaryModel)
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if val != "claude/claude-3-5-haiku-20241022" {
		t.Errorf("unexpected setting value %q", val)
	}
}
