// Package index keeps a full-text search index of node contents across all
// saved documents.
//
// It uses SQLite (pure-Go modernc driver) with an FTS5 table, the same
// engine and pragmas as a classic local memory store. The index is derived
// data: it can always be rebuilt from the document files, so callers treat
// index failures as warnings rather than errors.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/HendryAvila/braintree/internal/tree"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the data directory.
const FileName = "index.db"

// DefaultLimit caps search results when the caller passes 0.
const DefaultLimit = 20

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Hit is one matching node.
type Hit struct {
	Document string  `json:"document"`
	NodeID   string  `json:"node_id"`
	Depth    int     `json:"depth"`
	Content  string  `json:"content"`
	Rank     float64 `json:"rank"`
}

// DocumentInfo summarizes one indexed document.
type DocumentInfo struct {
	Name      string `json:"name"`
	Modified  string `json:"modified"`
	NodeCount int    `json:"node_count"`
}

// Source is the subset of the document store Rebuild needs.
type Source interface {
	List(pattern string) ([]store.Entry, error)
	Load(name string) (*tree.Document, error)
}

// Index is the SQLite-backed search index.
type Index struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the index database in dir.
func Open(dir string, logger *zap.Logger) (*Index, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("index: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("index: pragma %q: %w", p, err)
		}
	}

	ix := &Index{db: db, logger: logging.OrNop(logger)}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: migration: %w", err)
	}
	return ix, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			name       TEXT PRIMARY KEY,
			modified   TEXT NOT NULL,
			node_count INTEGER NOT NULL
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			document UNINDEXED,
			node_id  UNINDEXED,
			depth    UNINDEXED,
			content,
			tokenize = 'unicode61'
		);
	`
	_, err := ix.db.Exec(schema)
	return err
}

// Put replaces every indexed row of doc in one transaction.
func (ix *Index) Put(doc *tree.Document) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM nodes_fts WHERE document = ?`, doc.Name); err != nil {
		return fmt.Errorf("index: clear %q: %w", doc.Name, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO nodes_fts (document, node_id, depth, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare: %w", err)
	}
	defer stmt.Close()

	count := 0
	for v := range doc.Walk() {
		if _, err := stmt.Exec(doc.Name, v.Node.ID, v.Depth, v.Node.Content); err != nil {
			return fmt.Errorf("index: insert node %s: %w", v.Node.ID, err)
		}
		count++
	}

	if _, err := tx.Exec(`
		INSERT INTO documents (name, modified, node_count) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET modified = excluded.modified, node_count = excluded.node_count`,
		doc.Name, doc.Modified.UTC().Format("2006-01-02T15:04:05Z07:00"), count,
	); err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	ix.logger.Debug("document indexed", zap.String("name", doc.Name), zap.Int("nodes", count))
	return nil
}

// Remove drops a document from the index.
func (ix *Index) Remove(name string) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM nodes_fts WHERE document = ?`, name); err != nil {
		return fmt.Errorf("index: remove %q: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: remove %q: %w", name, err)
	}
	return tx.Commit()
}

// Rebuild drops the whole index and re-indexes every document in src.
// Unreadable documents are skipped with a warning. Returns how many
// documents were indexed.
func (ix *Index) Rebuild(src Source) (int, error) {
	entries, err := src.List("")
	if err != nil {
		return 0, fmt.Errorf("index: listing documents: %w", err)
	}
	if _, err := ix.db.Exec(`DELETE FROM nodes_fts; DELETE FROM documents;`); err != nil {
		return 0, fmt.Errorf("index: clear: %w", err)
	}

	indexed := 0
	for _, e := range entries {
		doc, err := src.Load(e.Name)
		if err != nil {
			ix.logger.Warn("skipping unreadable document", zap.String("name", e.Name), zap.Error(err))
			continue
		}
		if err := ix.Put(doc); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// Search runs a full-text query over node contents, best matches first.
func (ix *Index) Search(query string, limit int) ([]Hit, error) {
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := ix.db.Query(`
		SELECT document, node_id, depth, content, rank
		FROM nodes_fts
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Document, &h.NodeID, &h.Depth, &h.Content, &h.Rank); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Documents lists indexed documents by name.
func (ix *Index) Documents() ([]DocumentInfo, error) {
	rows, err := ix.db.Query(`SELECT name, modified, node_count FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Name, &d.Modified, &d.NodeCount); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "foo bar" → `"foo" "bar"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}
