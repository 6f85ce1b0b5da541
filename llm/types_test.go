package llm

import (
	"strings"
	"testing"
)

func TestCleanTitle(t *testing.T) {
	cases := map[string]string{
		"\"Weather in Paris\"":    "Weather in Paris",
		"  'Go concurrency'  ":    "Go concurrency",
		"Trip planning.":          "Trip planning",
		"":                        "New Chat",
		"   ":                     "New Chat",
		"Title with trailing: ,.": "Title with trailing",
	}

	for input, want := range cases {
		if got := cleanTitle(input); got != want {
			t.Errorf("cleanTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCleanTitleTruncates(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := cleanTitle(long)
	if len(got) != 103 {
		t.Errorf("expected truncated title of 103 chars, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated title should end with ellipsis, got %q", got)
	}
}

func TestNewProvider(t *testing.T) {
	kinds := []string{"openai", "claude", "gemini", "ollama"}
	for _, kind := range kinds {
		p, err := NewProvider(kind, Config{APIKey: "test"})
		if err != nil {
			t.Fatalf("NewProvider(%q) failed: %v", kind, err)
		}
		if p == nil {
			t.Fatalf("NewProvider(%q) returned nil provider", kind)
		}
	}

	if _, err := NewProvider("nope", Config{}); err == nil {
		t.Error("expected error for unknown provider kind")
	}
}

func TestTitlePromptLimitsContext(t *testing.T) {
	var msgs []Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, Message{Role: "user", Content: "msg"})
	}

	prompt := titlePrompt(msgs)
	// system + 4 context messages + final instruction
	if len(prompt) != 6 {
		t.Errorf("expected 6 prompt messages, got %d", len(prompt))
	}
	if prompt[0].Role != "system" {
		t.Errorf("first message should be system, got %s", prompt[0].Role)
	}
}
