package chat

import (
	"context"
	"regexp"
	"strings"

	"light-chat-engine/llm"
)

// maxConsecutiveStreamErrors bounds in-place retries of a broken stream
const maxConsecutiveStreamErrors = 3

type streamOutcome int

const (
	streamCompleted streamOutcome = iota
	streamCancelled
	streamFailed
)

// streamResult is the accumulated output of one provider stream. Text and
// Reasoning are tracked independently; Reasoning chunks are ordered for
// display.
type streamResult struct {
	Text      string
	Reasoning []string
	Outcome   streamOutcome
	Err       error
}

// streamObserver receives each unit as it arrives. Returning false stops
// the stream at the next unit boundary.
type streamObserver func(unit llm.StreamResponse) bool

// drainStream drives one provider stream to its end. Cancellation is
// checked before each unit; whatever accumulated before the cancellation
// point is kept. A stream error is retried by reopening the stream, up to
// maxConsecutiveStreamErrors times, but only while nothing has accumulated
// yet: once output exists, a late error is treated as a graceful end so
// partial output is never discarded.
func drainStream(ctx context.Context, provider llm.Provider, messages []llm.Message, observe streamObserver) streamResult {
	var text, reasoning strings.Builder
	consecutiveErrors := 0
	var lastErr error

	finish := func(outcome streamOutcome, err error) streamResult {
		res := streamResult{Text: text.String(), Outcome: outcome, Err: err}
		if reasoning.Len() > 0 {
			res.Reasoning = []string{reasoning.String()}
		} else {
			// Some models still emit inline thinking tags instead of a
			// structured reasoning channel. A structured channel, when
			// present, takes precedence and the text is left untouched.
			cleaned, steps := extractInlineThinking(res.Text)
			res.Text = cleaned
			res.Reasoning = steps
		}
		return res
	}

stream:
	for {
		if ctx.Err() != nil {
			return finish(streamCancelled, nil)
		}

		ch, err := provider.StreamChat(ctx, messages)
		if err != nil {
			consecutiveErrors++
			lastErr = err
			if text.Len() > 0 {
				return finish(streamCompleted, nil)
			}
			if consecutiveErrors >= maxConsecutiveStreamErrors {
				return finish(streamFailed, lastErr)
			}
			continue
		}

		for {
			if ctx.Err() != nil {
				return finish(streamCancelled, nil)
			}

			var unit llm.StreamResponse
			var ok bool
			select {
			case <-ctx.Done():
				return finish(streamCancelled, nil)
			case unit, ok = <-ch:
			}

			if !ok || unit.Done {
				return finish(streamCompleted, nil)
			}

			if unit.Error != nil {
				consecutiveErrors++
				lastErr = unit.Error
				if text.Len() > 0 {
					return finish(streamCompleted, nil)
				}
				if consecutiveErrors >= maxConsecutiveStreamErrors {
					return finish(streamFailed, lastErr)
				}
				continue stream
			}

			consecutiveErrors = 0
			if unit.Content != "" {
				text.WriteString(unit.Content)
			}
			if unit.Reasoning != "" {
				reasoning.WriteString(unit.Reasoning)
			}

			if observe != nil && !observe(unit) {
				return finish(streamCancelled, nil)
			}
		}
	}
}

// Inline thinking tag spellings seen across models
var thinkTagRegex = regexp.MustCompile(`(?is)<(?:think|thinking|thought)>(.*?)</(?:think|thinking|thought)>`)

// extractInlineThinking strips inline thinking spans out of the text and
// returns them as reasoning steps in document order.
func extractInlineThinking(text string) (string, []string) {
	matches := thinkTagRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var steps []string
	for _, m := range matches {
		if step := strings.TrimSpace(m[1]); step != "" {
			steps = append(steps, step)
		}
	}

	cleaned := strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))
	return cleaned, steps
}
