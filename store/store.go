// Package store implements the content-addressable blob store. Blobs are
// keyed by the SHA-256 of their raw bytes; the on-disk path is a pure
// function of (hash, extension), so identical content is written once no
// matter how many metadata rows point at it.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store manages content-addressed blobs under a root directory.
type Store struct {
	root string
}

// New creates a blob store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// HashBytes returns the lowercase hex SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PathFor derives the storage path for a content hash and extension. The
// first two hash characters shard the directory to keep listings small.
func (s *Store) PathFor(hash, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(s.root, hash[:2], hash+ext)
}

// Exists reports whether a blob with this hash and extension is on disk.
func (s *Store) Exists(hash, ext string) bool {
	_, err := os.Stat(s.PathFor(hash, ext))
	return err == nil
}

// StoreIfAbsent writes data under its content address unless a blob with the
// same hash and extension already exists, in which case the existing path is
// returned and no bytes are written. Writes go through a temp file and a
// rename so a concurrent identical upload lands on the same final bytes.
// On failure the partial temp file is removed and no path is returned.
func (s *Store) StoreIfAbsent(hash string, data []byte, ext string) (string, error) {
	if len(hash) < 2 {
		return "", fmt.Errorf("invalid content hash: %q", hash)
	}

	path := s.PathFor(hash, ext)

	// Re-check right before writing: another writer may have stored the
	// same content already.
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create blob shard directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+hash+"-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize blob: %w", err)
	}

	return path, nil
}

// Remove deletes the blob for a hash and extension. Missing blobs are not an
// error; cleanup is best effort.
func (s *Store) Remove(hash, ext string) error {
	err := os.Remove(s.PathFor(hash, ext))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}
