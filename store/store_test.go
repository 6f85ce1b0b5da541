package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("hello"))
	b := HashBytes([]byte("hello"))
	if a != b {
		t.Errorf("same bytes should hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(a))
	}
	if HashBytes([]byte("world")) == a {
		t.Error("different bytes should not collide")
	}
}

func TestStoreIfAbsentIdempotent(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	data := []byte("# fetched page\nsome content")
	hash := HashBytes(data)

	first, err := s.StoreIfAbsent(hash, data, ".md")
	if err != nil {
		t.Fatalf("first store failed: %v", err)
	}

	// Storing the same bytes again must reuse the blob
	for i := 0; i < 3; i++ {
		path, err := s.StoreIfAbsent(hash, data, ".md")
		if err != nil {
			t.Fatalf("repeat store failed: %v", err)
		}
		if path != first {
			t.Errorf("path changed on repeat store: %s vs %s", path, first)
		}
	}

	// Exactly one blob on disk (plus the shard directory)
	entries, err := os.ReadDir(filepath.Dir(first))
	if err != nil {
		t.Fatalf("failed to read shard dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 blob on disk, found %d", len(entries))
	}

	got, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}
	if string(got) != string(data) {
		t.Error("blob content does not match stored data")
	}
}

func TestPathForIsPureFunction(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	hash := HashBytes([]byte("x"))
	if s.PathFor(hash, ".md") != s.PathFor(hash, ".md") {
		t.Error("PathFor must be deterministic")
	}
	if s.PathFor(hash, ".md") == s.PathFor(hash, ".png") {
		t.Error("different extensions must map to different paths")
	}
	// Extension normalization: "md" and ".md" are the same path
	if s.PathFor(hash, "md") != s.PathFor(hash, ".md") {
		t.Error("extension with and without dot should normalize")
	}
}

func TestStoreIfAbsentRejectsBadHash(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := s.StoreIfAbsent("", []byte("data"), ".md"); err == nil {
		t.Error("expected error for empty hash")
	}
}

func TestRemoveMissingBlobIsNoError(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Remove(HashBytes([]byte("never stored")), ".md"); err != nil {
		t.Errorf("removing a missing blob should not fail: %v", err)
	}
}
