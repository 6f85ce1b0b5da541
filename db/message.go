package db

import (
	"fmt"
	"time"
)

// CreateMessage creates a new message. conversationID and senderID may be
// nil; tokensUsed may be nil when the provider did not report usage.
func (db *DB) CreateMessage(conversationID *int64, role string, senderID *int64, content string, tokensUsed *int) (*Message, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO messages (conversation_id, role, sender_id, content, tokens_used, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		conversationID, role, senderID, content, tokensUsed, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ID: %w", err)
	}

	// Update conversation's updated_at timestamp
	if conversationID != nil {
		if err := db.TouchConversation(*conversationID); err != nil {
			return nil, err
		}
	}

	return &Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		SenderID:       senderID,
		Content:        content,
		TokensUsed:     tokensUsed,
		CreatedAt:      now,
	}, nil
}

// GetMessage retrieves a message by ID
func (db *DB) GetMessage(id int64) (*Message, error) {
	var msg Message
	err := db.conn.QueryRow(
		"SELECT id, conversation_id, role, sender_id, content, tokens_used, created_at FROM messages WHERE id = ?",
		id,
	).Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.SenderID, &msg.Content, &msg.TokensUsed, &msg.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// ListMessages retrieves all messages in a conversation ordered by creation
func (db *DB) ListMessages(conversationID int64) ([]*Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, conversation_id, role, sender_id, content, tokens_used, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.SenderID, &msg.Content, &msg.TokensUsed, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// DeleteMessage deletes a message
func (db *DB) DeleteMessage(id int64) error {
	_, err := db.conn.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// CreateReasoningSteps saves the reasoning chunks for a message in display
// order. The message row must already exist.
func (db *DB) CreateReasoningSteps(messageID int64, contents []string) ([]*ReasoningStep, error) {
	var steps []*ReasoningStep
	now := time.Now()

	for i, content := range contents {
		result, err := db.conn.Exec(
			"INSERT INTO reasoning_steps (message_id, display_index, content, created_at) VALUES (?, ?, ?, ?)",
			messageID, i, content, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create reasoning step: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get reasoning step ID: %w", err)
		}

		steps = append(steps, &ReasoningStep{
			ID:           id,
			MessageID:    messageID,
			DisplayIndex: i,
			Content:      content,
			CreatedAt:    now,
		})
	}

	return steps, nil
}

// ListReasoningSteps retrieves the reasoning steps for a message in display order
func (db *DB) ListReasoningSteps(messageID int64) ([]*ReasoningStep, error) {
	rows, err := db.conn.Query(
		"SELECT id, message_id, display_index, content, created_at FROM reasoning_steps WHERE message_id = ? ORDER BY display_index ASC",
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reasoning steps: %w", err)
	}
	defer rows.Close()

	var steps []*ReasoningStep
	for rows.Next() {
		var step ReasoningStep
		if err := rows.Scan(&step.ID, &step.MessageID, &step.DisplayIndex, &step.Content, &step.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reasoning step: %w", err)
		}
		steps = append(steps, &step)
	}

	return steps, nil
}
