package chat

import (
	"context"
	"errors"
	"testing"

	"light-chat-engine/llm"
)

// fakeStreamProvider replays scripted stream units. Each StreamChat call
// consumes the next script; the last script repeats.
type fakeStreamProvider struct {
	scripts [][]llm.StreamResponse
	block   bool // when set, StreamChat returns a channel that never delivers
	calls   int
}

func (f *fakeStreamProvider) StreamChat(ctx context.Context, _ []llm.Message) (<-chan llm.StreamResponse, error) {
	if f.block {
		return make(chan llm.StreamResponse), nil
	}

	idx := f.calls
	if idx >= len(f.scripts) {
		idx = len(f.scripts) - 1
	}
	f.calls++

	script := f.scripts[idx]
	ch := make(chan llm.StreamResponse, len(script)+1)
	for _, unit := range script {
		ch <- unit
	}
	close(ch)
	return ch, nil
}

func (f *fakeStreamProvider) Chat(ctx context.Context, _ []llm.Message) (string, error) {
	return "", nil
}

func (f *fakeStreamProvider) GenerateTitle(ctx context.Context, _ []llm.Message) (string, error) {
	return "", nil
}

func (f *fakeStreamProvider) Name() string          { return "fake" }
func (f *fakeStreamProvider) Models() []string      { return nil }
func (f *fakeStreamProvider) ValidateConfig() error { return nil }

func TestDrainStreamAccumulates(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Content: "Hello "},
		{Reasoning: "thinking about greetings"},
		{Content: "world"},
		{Done: true},
	}}}

	var seen []llm.StreamResponse
	res := drainStream(context.Background(), provider, nil, func(u llm.StreamResponse) bool {
		seen = append(seen, u)
		return true
	})

	if res.Outcome != streamCompleted {
		t.Fatalf("outcome = %d", res.Outcome)
	}
	if res.Text != "Hello world" {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Reasoning) != 1 || res.Reasoning[0] != "thinking about greetings" {
		t.Errorf("reasoning = %v", res.Reasoning)
	}
	if len(seen) != 3 {
		t.Errorf("observer saw %d units, want 3", len(seen))
	}
}

func TestDrainStreamObserverStops(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Content: "one "},
		{Content: "two "},
		{Content: "three"},
		{Done: true},
	}}}

	count := 0
	res := drainStream(context.Background(), provider, nil, func(u llm.StreamResponse) bool {
		count++
		return count < 2
	})

	if res.Outcome != streamCancelled {
		t.Fatalf("outcome = %d", res.Outcome)
	}
	if res.Text != "one two " {
		t.Errorf("partial output lost: %q", res.Text)
	}
}

func TestDrainStreamCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Content: "should not arrive"},
		{Done: true},
	}}}

	res := drainStream(ctx, provider, nil, nil)
	if res.Outcome != streamCancelled {
		t.Fatalf("outcome = %d", res.Outcome)
	}
	if res.Text != "" {
		t.Errorf("nothing should accumulate, got %q", res.Text)
	}
}

func TestDrainStreamRetriesWhileEmpty(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{
		{{Error: errors.New("boom")}},
		{{Error: errors.New("boom again")}},
		{{Content: "recovered"}, {Done: true}},
	}}

	res := drainStream(context.Background(), provider, nil, nil)
	if res.Outcome != streamCompleted {
		t.Fatalf("outcome = %d, err = %v", res.Outcome, res.Err)
	}
	if res.Text != "recovered" {
		t.Errorf("text = %q", res.Text)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 stream opens, got %d", provider.calls)
	}
}

func TestDrainStreamGivesUpAfterConsecutiveErrors(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{
		{{Error: errors.New("boom")}},
	}}

	res := drainStream(context.Background(), provider, nil, nil)
	if res.Outcome != streamFailed {
		t.Fatalf("outcome = %d", res.Outcome)
	}
	if res.Err == nil {
		t.Error("failed stream should carry an error")
	}
	if provider.calls != maxConsecutiveStreamErrors {
		t.Errorf("expected %d attempts, got %d", maxConsecutiveStreamErrors, provider.calls)
	}
}

func TestDrainStreamLateErrorKeepsPartialOutput(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Content: "partial answer"},
		{Error: errors.New("connection reset")},
	}}}

	res := drainStream(context.Background(), provider, nil, nil)
	if res.Outcome != streamCompleted {
		t.Fatalf("late error should end gracefully, outcome = %d", res.Outcome)
	}
	if res.Text != "partial answer" {
		t.Errorf("partial output lost: %q", res.Text)
	}
	if provider.calls != 1 {
		t.Errorf("no retry once output exists, got %d opens", provider.calls)
	}
}

func TestDrainStreamInlineThinking(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Content: "<think>pondering the question</think>the answer"},
		{Done: true},
	}}}

	res := drainStream(context.Background(), provider, nil, nil)
	if res.Text != "the answer" {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Reasoning) != 1 || res.Reasoning[0] != "pondering the question" {
		t.Errorf("reasoning = %v", res.Reasoning)
	}
}

func TestDrainStreamStructuredReasoningWins(t *testing.T) {
	provider := &fakeStreamProvider{scripts: [][]llm.StreamResponse{{
		{Reasoning: "structured"},
		{Content: "<think>inline</think>answer"},
		{Done: true},
	}}}

	res := drainStream(context.Background(), provider, nil, nil)
	if len(res.Reasoning) != 1 || res.Reasoning[0] != "structured" {
		t.Errorf("structured reasoning should win: %v", res.Reasoning)
	}
	if res.Text != "<think>inline</think>answer" {
		t.Errorf("text must stay untouched when structured reasoning exists: %q", res.Text)
	}
}

func TestExtractInlineThinkingSpellings(t *testing.T) {
	text := "<thinking>first</thinking>middle<thought>second</thought>end"
	cleaned, steps := extractInlineThinking(text)

	if cleaned != "middleend" {
		t.Errorf("cleaned = %q", cleaned)
	}
	if len(steps) != 2 || steps[0] != "first" || steps[1] != "second" {
		t.Errorf("steps = %v", steps)
	}
}
