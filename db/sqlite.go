package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(1) // SQLite works best with single connection
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}

	// Run migrations
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs database migrations
func (db *DB) migrate() error {
	migrations := []string{
		// Conversations table
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Messages table. conversation_id is nullable for orphaned/system
		// messages; sender_id points at whichever participant produced the
		// message and may be null.
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER,
			role TEXT NOT NULL,
			sender_id INTEGER,
			content TEXT NOT NULL,
			tokens_used INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,

		// Reasoning steps, ordered per message by display_index
		`CREATE TABLE IF NOT EXISTS reasoning_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id INTEGER NOT NULL,
			display_index INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
		)`,

		// Search decisions: the enrichment pipeline's yes/no judgment
		`CREATE TABLE IF NOT EXISTS search_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id INTEGER NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			search_needed INTEGER NOT NULL DEFAULT 0,
			search_query TEXT DEFAULT '',
			search_result_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
		)`,

		// Search executions. total_results stays null until the search
		// completes so observers can render a pending state.
		`CREATE TABLE IF NOT EXISTS search_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			engine TEXT NOT NULL,
			total_results INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Fetched URLs. Deduped by content hash: one row per distinct
		// content, shared across messages via message_links.
		`CREATE TABLE IF NOT EXISTS fetch_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			source_id INTEGER,
			url TEXT NOT NULL,
			title TEXT DEFAULT '',
			description TEXT DEFAULT '',
			storage_path TEXT DEFAULT '',
			declared_type TEXT DEFAULT '',
			converted_type TEXT DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT DEFAULT '',
			content_hash TEXT DEFAULT '',
			raw_size INTEGER DEFAULT 0,
			converted_size INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// File attachments: a new row per use, blobs shared by hash
		`CREATE TABLE IF NOT EXISTS file_attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT DEFAULT '',
			storage_path TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
		)`,

		// Typed join linking messages to enrichment records
		`CREATE TABLE IF NOT EXISTS message_links (
			message_id INTEGER NOT NULL,
			target_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			PRIMARY KEY (message_id, target_id, kind),
			FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
		)`,

		// Settings table
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_results_hash ON fetch_results(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_message_links_message ON message_links(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reasoning_steps_message ON reasoning_steps(message_id, display_index)`,
	}

	for _, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}
