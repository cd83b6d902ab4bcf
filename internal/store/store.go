// Package store persists tree documents as one JSON file per document.
//
// Layout under the data directory:
//
//	<name>.json       full document snapshot, mode 0600
//	<name>.json.bak   previous snapshot, written before every overwrite
//
// Saves are atomic: the snapshot goes to a temp file in the same
// directory, is fsynced and re-validated, then renamed over the
// destination. A failed save leaves the previous file untouched.
//
// There is no file locking. Concurrent writers are detected by the
// session's watcher, not prevented here.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

const (
	// Ext is the extension of document files.
	Ext = ".json"
	// BackupExt is appended to a document path to name its backup.
	BackupExt = ".bak"

	fileMode = 0o600
	dirMode  = 0o700
)

var (
	// ErrNotFound indicates there is no stored document with that name.
	ErrNotFound = errors.New("document not found")

	// ErrCorrupt indicates a stored file that is not a well-formed document.
	ErrCorrupt = errors.New("corrupt document")
)

// Store defines the persistence interface for tree documents.
// Abstracted for testability (DIP).
type Store interface {
	Path(name string) string
	Exists(name string) bool
	Save(doc *tree.Document) (string, error)
	Load(name string) (*tree.Document, error)
	List(pattern string) ([]Entry, error)
	Remove(name string) error
}

// Entry describes one stored document.
type Entry struct {
	Name     string
	Path     string
	Size     int64
	Modified time.Time
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a filesystem-backed store rooted at dir. The
// directory is created lazily on first write.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logging.OrNop(logger)}
}

// Dir returns the storage directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Path returns the file path for a document name (sanitized).
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, tree.SanitizeName(name)+Ext)
}

// BackupPath returns the backup path for a document name.
func (fs *FileStore) BackupPath(name string) string {
	return fs.Path(name) + BackupExt
}

// Exists reports whether a document with that name is stored.
func (fs *FileStore) Exists(name string) bool {
	if tree.SanitizeName(name) == "" {
		return false
	}
	_, err := os.Stat(fs.Path(name))
	return err == nil
}

// Save writes a full snapshot of doc and returns its path. An existing file
// is first copied to <path>.bak.
func (fs *FileStore) Save(doc *tree.Document) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", fmt.Errorf("refusing to save: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling document: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(fs.dir, dirMode); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	path := fs.Path(doc.Name)
	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+BackupExt); err != nil {
			return "", fmt.Errorf("backing up %s: %w", filepath.Base(path), err)
		}
		fs.logger.Debug("backup written", zap.String("path", path+BackupExt))
	}

	if err := writeAtomic(path, data); err != nil {
		return "", err
	}

	fs.logger.Debug("document saved",
		zap.String("name", doc.Name),
		zap.String("path", path),
		zap.Int("nodes", doc.Len()),
	)
	return path, nil
}

// Load reads and validates a stored document.
func (fs *FileStore) Load(name string) (*tree.Document, error) {
	if tree.SanitizeName(name) == "" {
		return nil, fmt.Errorf("%w: %q", tree.ErrEmptyName, name)
	}
	path := fs.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses and validates a document snapshot.
func Decode(data []byte) (*tree.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc tree.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCorrupt)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &doc, nil
}

// List returns stored documents sorted by name. A non-empty pattern filters
// names with doublestar glob syntax ("proj*", "{work,home}-*"). A missing
// data directory yields an empty list.
func (fs *FileStore) List(pattern string) ([]Entry, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	result := []Entry{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), Ext)
		if !tree.IsValidName(name) {
			continue
		}
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, name); !ok {
				continue
			}
		}
		info, err := e.Info()
		if err != nil {
			continue // vanished between ReadDir and Info
		}
		result = append(result, Entry{
			Name:     name,
			Path:     filepath.Join(fs.dir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	slices.SortFunc(result, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return result, nil
}

// Remove deletes a stored document and its backup.
func (fs *FileStore) Remove(name string) error {
	path := fs.Path(name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if err := os.Remove(path + BackupExt); err != nil && !errors.Is(err, os.ErrNotExist) {
		fs.logger.Warn("could not remove backup", zap.String("path", path+BackupExt), zap.Error(err))
	}
	return nil
}
