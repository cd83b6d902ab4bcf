// Package treetools provides MCP tool handlers over stored tree documents.
//
// Each tool handler follows the same pattern:
//   - A struct with its dependencies (*Library, *export.Exporter) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Mutating tools load the named document, apply one tree operation and save
// it back through the store, so every change gets the usual backup and
// atomic write.
package treetools

import (
	"fmt"
	"sync"

	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/HendryAvila/braintree/internal/tree"
	"go.uber.org/zap"
)

// Indexer is the part of the search index the tools use.
type Indexer interface {
	Put(doc *tree.Document) error
	Search(query string, limit int) ([]index.Hit, error)
}

// Library is the shared document access for all tools. Read-modify-write
// cycles are serialized so concurrent tool calls cannot lose updates.
type Library struct {
	store  store.Store
	index  Indexer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewLibrary creates a Library. ix may be nil, which disables tree_search.
func NewLibrary(st store.Store, ix Indexer, logger *zap.Logger) *Library {
	return &Library{store: st, index: ix, logger: logging.OrNop(logger)}
}

// Load reads a stored document.
func (l *Library) Load(name string) (*tree.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Load(name)
}

// Create stores a new document, refusing to replace an existing one unless
// overwrite is set.
func (l *Library) Create(doc *tree.Document, overwrite bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !overwrite && l.store.Exists(doc.Name) {
		return fmt.Errorf("tree %q already exists (pass overwrite=true to replace it)", doc.Name)
	}
	return l.persist(doc)
}

// Update loads name, applies fn and saves the result. Nothing is written
// when fn fails.
func (l *Library) Update(name string, fn func(doc *tree.Document) error) (*tree.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.store.Load(name)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := l.persist(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// persist saves doc and refreshes the index. Index failures are logged, not
// returned: the document itself is safely stored.
func (l *Library) persist(doc *tree.Document) error {
	if _, err := l.store.Save(doc); err != nil {
		return err
	}
	if l.index != nil {
		if err := l.index.Put(doc); err != nil {
			l.logger.Warn("updating search index", zap.String("document", doc.Name), zap.Error(err))
		}
	}
	return nil
}
