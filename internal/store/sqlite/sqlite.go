package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/dmview/internal/store"
	"github.com/vovakirdan/dmview/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (collection, key)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq);
`

// SQLiteStore implements store.DocumentStore for SQLite.
type SQLiteStore struct {
	db    *sql.DB
	newID func() string
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; :memory: requires it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, newID: utils.NewID}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListDocuments returns all documents of a collection in insertion order.
func (s *SQLiteStore) ListDocuments(ctx context.Context, collection string) ([]store.Document, error) {
	query := `
		SELECT key, body
		FROM documents
		WHERE collection = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var (
			key  string
			body string
		)
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, store.Document{Key: key, Body: json.RawMessage(body)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// GetDocument returns a single document or store.ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, collection, key string) (*store.Document, error) {
	body, err := getBody(ctx, s.db, collection, key)
	if err != nil {
		return nil, err
	}
	return &store.Document{Key: key, Body: body}, nil
}

// PushDocument stores body under a newly generated key.
func (s *SQLiteStore) PushDocument(ctx context.Context, collection string, body json.RawMessage) (string, error) {
	if !json.Valid(body) {
		return "", store.ErrInvalidDocument
	}

	key := s.newID()
	query := `
		INSERT INTO documents (collection, key, body)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, collection, key, string(body)); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	return key, nil
}

// PutDocument replaces (or creates) the document at key. A null body deletes it.
func (s *SQLiteStore) PutDocument(ctx context.Context, collection, key string, body json.RawMessage) error {
	if !json.Valid(body) {
		return store.ErrInvalidDocument
	}
	if isNull(body) {
		return s.DeleteDocument(ctx, collection, key)
	}

	query := `
		INSERT INTO documents (collection, key, body)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, collection, key, string(body)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// PatchDocument merges the top-level fields of patch into the document at key.
// Fields set to null in the patch are removed.
func (s *SQLiteStore) PatchDocument(ctx context.Context, collection, key string, patch json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return nil, store.ErrInvalidDocument
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	merged := make(map[string]json.RawMessage)
	existing, err := getBody(ctx, tx, collection, key)
	switch {
	case err == nil:
		// Documents written through PutDocument may be scalars; those are replaced.
		_ = json.Unmarshal(existing, &merged)
		if merged == nil {
			merged = make(map[string]json.RawMessage)
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	for name, value := range fields {
		if isNull(value) {
			delete(merged, name)
			continue
		}
		merged[name] = value
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal merged document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, key, body)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, query, collection, key, string(body)); err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return body, nil
}

// DeleteDocument removes the document at key.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, collection, key string) error {
	query := `DELETE FROM documents WHERE collection = ? AND key = ?`
	if _, err := s.db.ExecContext(ctx, query, collection, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBody(ctx context.Context, q queryer, collection, key string) (json.RawMessage, error) {
	query := `
		SELECT body
		FROM documents
		WHERE collection = ? AND key = ?
	`
	var body string
	err := q.QueryRowContext(ctx, query, collection, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return json.RawMessage(body), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
