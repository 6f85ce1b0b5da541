package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"light-chat-engine/llm"
)

func TestDetectMimeType(t *testing.T) {
	tests := map[string]string{
		"main.go":      "text/x-go",
		"script.py":    "text/x-python",
		"notes.md":     "text/markdown",
		"data.json":    "application/json",
		"photo.png":    "image/png",
		"mystery.blob": "application/octet-stream",
	}

	for file, want := range tests {
		if got := detectMimeType(file); got != want {
			t.Errorf("detectMimeType(%q) = %q, want %q", file, got, want)
		}
	}
}

func TestProcessTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("some notes"), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewAttachmentProcessor()
	att, err := p.ProcessFile(path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if att.Type != "file" {
		t.Errorf("type = %q", att.Type)
	}
	if att.Filename != "notes.txt" {
		t.Errorf("filename = %q", att.Filename)
	}
	if string(att.Data) != "some notes" {
		t.Errorf("data = %q", att.Data)
	}
}

func TestProcessFileRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.blob")
	if err := os.WriteFile(path, []byte{0x00, 0x01}, 0644); err != nil {
		t.Fatal(err)
	}

	p := NewAttachmentProcessor()
	if _, err := p.ProcessFile(path); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestProcessFileRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 1024)), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewAttachmentProcessor()
	p.maxFileSize = 10
	if _, err := p.ProcessFile(path); err == nil {
		t.Error("expected error for oversized file")
	}
}

func TestExtensionForAttachment(t *testing.T) {
	tests := []struct {
		att  llm.Attachment
		want string
	}{
		{llm.Attachment{Filename: "photo.PNG"}, ".png"},
		{llm.Attachment{Filename: "noext", MimeType: "image/jpeg"}, ".jpg"},
		{llm.Attachment{Filename: "", MimeType: "text/markdown"}, ".md"},
		{llm.Attachment{Filename: "", MimeType: "application/x-unknown"}, ".bin"},
	}

	for _, tt := range tests {
		if got := ExtensionForAttachment(&tt.att); got != tt.want {
			t.Errorf("ExtensionForAttachment(%q, %q) = %q, want %q", tt.att.Filename, tt.att.MimeType, got, tt.want)
		}
	}
}
