package chat

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONFencedJSONBlock(t *testing.T) {
	text := "Here is my answer:\n```json\n{\"search_needed\": true, \"search_query\": \"paris weather\"}\n```\nHope that helps."

	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	var out searchDecisionOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if !out.SearchNeeded || out.SearchQuery != "paris weather" {
		t.Errorf("unexpected decision: %+v", out)
	}
}

func TestExtractJSONAnyFencedBlock(t *testing.T) {
	text := "```\n{\"reasoning\": \"no fence language\"}\n```"

	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if raw != `{"reasoning": "no fence language"}` {
		t.Errorf("got %q", raw)
	}
}

func TestExtractJSONBalancedBraces(t *testing.T) {
	text := `The model decided: {"reasoning": "nested {braces} in string", "inner": {"a": 1}} and then rambled on.`

	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !json.Valid([]byte(raw)) {
		t.Fatalf("extracted span is not valid JSON: %q", raw)
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatal(err)
	}
	if out["reasoning"] != "nested {braces} in string" {
		t.Errorf("string braces broke extraction: %v", out)
	}
}

func TestExtractJSONPrefersFencedJSON(t *testing.T) {
	text := "{\"loose\": true}\n```json\n{\"fenced\": true}\n```"

	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if raw != `{"fenced": true}` {
		t.Errorf("fenced json block should win, got %q", raw)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("the model refused to answer in JSON"); err == nil {
		t.Error("expected error when no JSON is present")
	}
	if _, err := ExtractJSON("unbalanced { opening"); err == nil {
		t.Error("expected error for unbalanced braces")
	}
}
