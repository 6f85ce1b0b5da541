package db

import (
	"fmt"
	"time"
)

// CreateFileAttachment creates a new attachment row. Attachments are
// per-message facts: every use gets its own row even when the storage path
// is shared with an earlier upload of the same bytes.
func (db *DB) CreateFileAttachment(messageID int64, filename string, size int64, mimeType, storagePath, contentHash string) (*FileAttachment, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO file_attachments (message_id, filename, size, mime_type, storage_path, content_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		messageID, filename, size, mimeType, storagePath, contentHash, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get file attachment ID: %w", err)
	}

	return &FileAttachment{
		ID:          id,
		MessageID:   messageID,
		Filename:    filename,
		Size:        size,
		MimeType:    mimeType,
		StoragePath: storagePath,
		ContentHash: contentHash,
		CreatedAt:   now,
	}, nil
}

// ListFileAttachments retrieves the attachments for a message
func (db *DB) ListFileAttachments(messageID int64) ([]*FileAttachment, error) {
	rows, err := db.conn.Query(
		"SELECT id, message_id, filename, size, mime_type, storage_path, content_hash, created_at FROM file_attachments WHERE message_id = ? ORDER BY id ASC",
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list file attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*FileAttachment
	for rows.Next() {
		var att FileAttachment
		if err := rows.Scan(&att.ID, &att.MessageID, &att.Filename, &att.Size, &att.MimeType, &att.StoragePath, &att.ContentHash, &att.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	return attachments, nil
}
