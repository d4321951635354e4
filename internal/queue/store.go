package queue

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the mutation list in a local sqlite database.
// Save rewrites the full namespace table inside one transaction, so the
// persisted order always matches the in-memory order.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the queue database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create queue dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_mutations (
			namespace         TEXT NOT NULL,
			position          INTEGER NOT NULL,
			id                TEXT NOT NULL,
			endpoint          TEXT NOT NULL,
			method            TEXT NOT NULL,
			body              TEXT,
			created_at        TEXT NOT NULL,
			retry_count       INTEGER NOT NULL DEFAULT 0,
			max_retries       INTEGER NOT NULL DEFAULT 3,
			status            TEXT NOT NULL,
			entity_updated_at TEXT,
			PRIMARY KEY (namespace, position)
		)`)
	if err != nil {
		return fmt.Errorf("init queue schema: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(mutations []Mutation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pending_mutations WHERE namespace = ?`, Namespace); err != nil {
		return fmt.Errorf("clear namespace: %w", err)
	}

	for i, m := range mutations {
		var body any
		if len(m.Body) > 0 {
			body = string(m.Body)
		}
		var entityUpdated any
		if m.EntityUpdatedAt != "" {
			entityUpdated = m.EntityUpdatedAt
		}
		_, err := tx.Exec(`
			INSERT INTO pending_mutations
				(namespace, position, id, endpoint, method, body, created_at, retry_count, max_retries, status, entity_updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			Namespace, i, m.ID, m.Endpoint, m.Method, body,
			m.CreatedAt.UTC().Format(time.RFC3339Nano),
			m.RetryCount, m.MaxRetries, string(m.Status), entityUpdated,
		)
		if err != nil {
			return fmt.Errorf("insert mutation %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// Load implements Store.
func (s *SQLiteStore) Load() ([]Mutation, error) {
	rows, err := s.db.Query(`
		SELECT id, endpoint, method, body, created_at, retry_count, max_retries, status, entity_updated_at
		FROM pending_mutations WHERE namespace = ? ORDER BY position ASC`, Namespace)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	var out []Mutation
	for rows.Next() {
		var (
			m                   Mutation
			body, entityUpdated sql.NullString
			createdAt           string
		)
		if err := rows.Scan(&m.ID, &m.Endpoint, &m.Method, &body, &createdAt,
			&m.RetryCount, &m.MaxRetries, (*string)(&m.Status), &entityUpdated); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		if body.Valid && body.String != "" {
			m.Body = []byte(body.String)
		}
		if entityUpdated.Valid {
			m.EntityUpdatedAt = entityUpdated.String
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", m.ID, err)
		}
		m.CreatedAt = ts
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
