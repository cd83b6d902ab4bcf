// Package session drives the interactive menu: it owns the active document,
// its unsaved-changes flag and the terminal conversation around them.
package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/HendryAvila/braintree/internal/export"
	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/HendryAvila/braintree/internal/tree"
	"go.uber.org/zap"
)

var (
	// ErrNoDocument indicates a command that needs an active document.
	ErrNoDocument = errors.New("no tree is open (create or load one first)")

	// ErrInvalidSelection indicates an unknown menu choice or list number.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrEmptyInput indicates a required answer was left blank.
	ErrEmptyInput = errors.New("input is required")

	// ErrInput indicates the input stream failed for a reason other than
	// ending normally.
	ErrInput = errors.New("reading input")

	// ErrSearchUnavailable indicates the search index could not be opened.
	ErrSearchUnavailable = errors.New("search index is not available")
)

// Searcher is the subset of the index the session uses.
type Searcher interface {
	Put(doc *tree.Document) error
	Search(query string, limit int) ([]index.Hit, error)
}

// Options configures a Session.
type Options struct {
	Store    store.Store
	Exporter *export.Exporter
	// Index is optional; without it search is unavailable and saves skip
	// indexing.
	Index Searcher
	// Watcher is optional.
	Watcher *Watcher
	Logger  *zap.Logger
	In      io.Reader
	Out     io.Writer
	// Plain disables styling in tree display.
	Plain bool
	// OnInterrupt runs once when the run context is cancelled, before the
	// save-on-exit prompt. Typically restores default signal handling so a
	// second Ctrl-C terminates immediately.
	OnInterrupt func()
}

// Session is one interactive editing session.
type Session struct {
	store    store.Store
	exporter *export.Exporter
	index    Searcher
	watcher  *Watcher
	console  *Console
	logger   *zap.Logger
	plain    bool

	onInterrupt func()

	doc   *tree.Document
	dirty bool
	// path is the file doc was last loaded from or saved to; empty for a
	// tree that has never been on disk.
	path string
	// seen fingerprints path's content at the last load or save.
	seen fingerprint
}

// New creates a session with no active document.
func New(opts Options) *Session {
	return &Session{
		store:       opts.Store,
		exporter:    opts.Exporter,
		index:       opts.Index,
		watcher:     opts.Watcher,
		console:     NewConsole(opts.In, opts.Out),
		logger:      logging.OrNop(opts.Logger),
		plain:       opts.Plain,
		onInterrupt: opts.OnInterrupt,
	}
}

// Document returns the active document, or nil.
func (s *Session) Document() *tree.Document {
	return s.doc
}

// Dirty reports whether the active document has unsaved changes.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Run shows the menu until the user quits, input ends, or ctx is cancelled.
// On cancellation or end of input the user is offered a save first.
func (s *Session) Run(ctx context.Context) error {
	s.console.Println("braintree: hierarchical notes in your terminal")
	for {
		s.noticeExternalChange()
		s.printMenu()

		choice, err := s.console.Prompt(ctx, "Choose an option: ")
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return s.shutdown(err)
		}

		quit, err := s.Dispatch(ctx, choice)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			// Whatever the command reported (a killed converter, say), the
			// interrupt decides how the session ends.
			s.logger.Warn("command interrupted", zap.String("choice", choice), zap.Error(err))
			return s.shutdown(ctx.Err())
		case errors.Is(err, io.EOF) || errors.Is(err, ErrInput):
			return s.shutdown(err)
		default:
			s.console.Printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Dispatch runs one menu command. quit is true when the session should end.
func (s *Session) Dispatch(ctx context.Context, choice string) (quit bool, err error) {
	cmd, ok := commands[choice]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidSelection, choice)
	}
	if cmd.quit {
		return s.quit(ctx)
	}
	return false, cmd.run(s, ctx)
}

func (s *Session) printMenu() {
	s.console.Println()
	s.console.Println("1) Create new tree   2) Add node   3) Edit node   4) Delete node")
	s.console.Println("5) Display tree      6) Save tree  7) Load tree   8) Export tree")
	s.console.Println("9) Search trees      0) Quit")
	if s.doc != nil {
		marker := ""
		if s.dirty {
			marker = " (unsaved changes)"
		}
		s.console.Printf("Active: %s%s\n", s.doc.Name, marker)
	}
}

// shutdown ends the session after an interrupt or end of input. A dirty
// document is offered for saving through the regular save path.
func (s *Session) shutdown(cause error) error {
	if s.onInterrupt != nil {
		s.onInterrupt()
	}
	if !errors.Is(cause, io.EOF) && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return s.rescue(cause)
	}
	s.console.Println()
	if errors.Is(cause, io.EOF) {
		s.logger.Debug("input closed")
	} else {
		s.logger.Info("interrupted")
		s.console.Println("Interrupted.")
	}
	if !s.dirty {
		return nil
	}

	// The run context is gone; prompts from here on use a fresh one.
	ctx := context.Background()
	ok, err := s.console.Confirm(ctx, "Save changes before exiting?")
	if err != nil || !ok {
		s.console.Println("Unsaved changes discarded.")
		return nil
	}
	if err := s.save(ctx); err != nil {
		s.console.Printf("Error: %v\n", err)
		return err
	}
	return nil
}

// rescue ends the session when input can no longer be read. Nobody can
// answer a prompt, so a dirty document is saved as is; the store keeps a
// backup of whatever it replaces.
func (s *Session) rescue(cause error) error {
	s.logger.Error("reading input", zap.Error(cause))
	s.console.Printf("\nError: %v\n", cause)
	if !s.dirty {
		return cause
	}
	written, err := s.store.Save(s.doc)
	if err != nil {
		s.console.Printf("Error: could not save %s: %v\n", s.doc.Name, err)
		return errors.Join(cause, err)
	}
	s.dirty = false
	s.track(written)
	s.console.Printf("Unsaved changes written to %s.\n", written)
	return cause
}

// noticeExternalChange tells the user when the watcher saw the active file
// change under us.
func (s *Session) noticeExternalChange() {
	if s.watcher == nil || !s.watcher.TakePending() {
		return
	}
	if s.externallyModified() {
		s.console.Printf("Warning: %s was modified outside this session.\n", s.path)
	}
}

// fingerprint identifies file content; the zero value means "no file".
type fingerprint struct {
	exists bool
	sum    [sha256.Size]byte
}

func fingerprintOf(path string) fingerprint {
	data, err := os.ReadFile(path)
	if err != nil {
		return fingerprint{}
	}
	return fingerprint{exists: true, sum: sha256.Sum256(data)}
}

func (f fingerprint) equal(o fingerprint) bool {
	return f.exists == o.exists && bytes.Equal(f.sum[:], o.sum[:])
}

// externallyModified reports whether the file the active document came from
// no longer holds what we last loaded or saved.
func (s *Session) externallyModified() bool {
	if s.path == "" {
		return false
	}
	return !fingerprintOf(s.path).equal(s.seen)
}

// track records path as the active document's file.
func (s *Session) track(path string) {
	s.path = path
	s.seen = fingerprintOf(path)
	if s.watcher != nil {
		s.watcher.Track(path)
	}
}

// requireDoc returns the active document or ErrNoDocument.
func (s *Session) requireDoc() (*tree.Document, error) {
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	return s.doc, nil
}
