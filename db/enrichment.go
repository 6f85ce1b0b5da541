package db

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateSearchDecision persists the enrichment pipeline's search judgment
// for a message. The message row must already exist.
func (db *DB) CreateSearchDecision(messageID int64, reasoning string, searchNeeded bool, query string) (*SearchDecision, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO search_decisions (message_id, reasoning, search_needed, search_query, created_at) VALUES (?, ?, ?, ?, ?)",
		messageID, reasoning, searchNeeded, query, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get search decision ID: %w", err)
	}

	return &SearchDecision{
		ID:           id,
		MessageID:    messageID,
		Reasoning:    reasoning,
		SearchNeeded: searchNeeded,
		SearchQuery:  query,
		CreatedAt:    now,
	}, nil
}

// SetDecisionSearchResult records the search result a decision produced
func (db *DB) SetDecisionSearchResult(decisionID, searchResultID int64) error {
	_, err := db.conn.Exec(
		"UPDATE search_decisions SET search_result_id = ? WHERE id = ?",
		searchResultID, decisionID,
	)
	if err != nil {
		return fmt.Errorf("failed to set decision search result: %w", err)
	}
	return nil
}

// GetSearchDecision retrieves the search decision for a message
func (db *DB) GetSearchDecision(messageID int64) (*SearchDecision, error) {
	var d SearchDecision
	err := db.conn.QueryRow(
		"SELECT id, message_id, reasoning, search_needed, search_query, search_result_id, created_at FROM search_decisions WHERE message_id = ? ORDER BY id DESC LIMIT 1",
		messageID,
	).Scan(&d.ID, &d.MessageID, &d.Reasoning, &d.SearchNeeded, &d.SearchQuery, &d.SearchResultID, &d.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to get search decision: %w", err)
	}

	return &d, nil
}

// CreateSearchResult creates a pending search record. total_results stays
// null until UpdateSearchResultTotal is called after the search completes.
func (db *DB) CreateSearchResult(query, engine string) (*SearchResult, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		"INSERT INTO search_results (query, engine, created_at, updated_at) VALUES (?, ?, ?, ?)",
		query, engine, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get search result ID: %w", err)
	}

	return &SearchResult{
		ID:        id,
		Query:     query,
		Engine:    engine,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateSearchResultTotal records the result count once the search completed
func (db *DB) UpdateSearchResultTotal(id int64, total int) error {
	_, err := db.conn.Exec(
		"UPDATE search_results SET total_results = ?, updated_at = ? WHERE id = ?",
		total, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update search result total: %w", err)
	}
	return nil
}

// GetSearchResult retrieves a search result by ID
func (db *DB) GetSearchResult(id int64) (*SearchResult, error) {
	var sr SearchResult
	err := db.conn.QueryRow(
		"SELECT id, query, engine, total_results, created_at, updated_at FROM search_results WHERE id = ?",
		id,
	).Scan(&sr.ID, &sr.Query, &sr.Engine, &sr.TotalResults, &sr.CreatedAt, &sr.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to get search result: %w", err)
	}

	return &sr, nil
}

// CreateFetchResult persists a fetched URL record
func (db *DB) CreateFetchResult(fr *FetchResult) (*FetchResult, error) {
	now := time.Now()
	result, err := db.conn.Exec(
		`INSERT INTO fetch_results (source, source_id, url, title, description, storage_path, declared_type, converted_type, status, error, content_hash, raw_size, converted_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fr.Source, fr.SourceID, fr.URL, fr.Title, fr.Description, fr.StoragePath,
		fr.DeclaredType, fr.ConvertedType, fr.Status, fr.Error, fr.ContentHash,
		fr.RawSize, fr.ConvertedSize, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch result ID: %w", err)
	}

	fr.ID = id
	fr.CreatedAt = now
	return fr, nil
}

// FindFetchResultByHash looks up an existing successful fetch with the same
// content hash, the reuse side of fetch deduplication.
func (db *DB) FindFetchResultByHash(hash string) (*FetchResult, error) {
	var fr FetchResult
	err := db.conn.QueryRow(
		`SELECT id, source, source_id, url, title, description, storage_path, declared_type, converted_type, status, error, content_hash, raw_size, converted_size, created_at
		 FROM fetch_results WHERE content_hash = ? AND status = ? ORDER BY id ASC LIMIT 1`,
		hash, FetchStatusSuccess,
	).Scan(&fr.ID, &fr.Source, &fr.SourceID, &fr.URL, &fr.Title, &fr.Description,
		&fr.StoragePath, &fr.DeclaredType, &fr.ConvertedType, &fr.Status, &fr.Error,
		&fr.ContentHash, &fr.RawSize, &fr.ConvertedSize, &fr.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find fetch result by hash: %w", err)
	}

	return &fr, nil
}

// LinkMessage attaches an enrichment record to a message through the typed
// join table. Re-linking the same record is a no-op.
func (db *DB) LinkMessage(messageID, targetID int64, kind string) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO message_links (message_id, target_id, kind) VALUES (?, ?, ?)",
		messageID, targetID, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to link message: %w", err)
	}
	return nil
}

// ListMessageFetchResults retrieves the fetch results linked to a message
func (db *DB) ListMessageFetchResults(messageID int64) ([]*FetchResult, error) {
	rows, err := db.conn.Query(
		`SELECT f.id, f.source, f.source_id, f.url, f.title, f.description, f.storage_path, f.declared_type, f.converted_type, f.status, f.error, f.content_hash, f.raw_size, f.converted_size, f.created_at
		 FROM fetch_results f
		 JOIN message_links l ON l.target_id = f.id AND l.kind = ?
		 WHERE l.message_id = ?
		 ORDER BY f.id ASC`,
		LinkKindFetchResult, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list message fetch results: %w", err)
	}
	defer rows.Close()

	var results []*FetchResult
	for rows.Next() {
		var fr FetchResult
		if err := rows.Scan(&fr.ID, &fr.Source, &fr.SourceID, &fr.URL, &fr.Title, &fr.Description,
			&fr.StoragePath, &fr.DeclaredType, &fr.ConvertedType, &fr.Status, &fr.Error,
			&fr.ContentHash, &fr.RawSize, &fr.ConvertedSize, &fr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch result: %w", err)
		}
		results = append(results, &fr)
	}

	return results, nil
}
