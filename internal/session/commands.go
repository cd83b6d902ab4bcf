package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/render"
	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

type command struct {
	run  func(s *Session, ctx context.Context) error
	quit bool
}

// commands maps menu keys (and a few spelled-out aliases) to handlers.
var commands = map[string]command{
	"1": {run: (*Session).create}, "create": {run: (*Session).create},
	"2": {run: (*Session).add}, "add": {run: (*Session).add},
	"3": {run: (*Session).edit}, "edit": {run: (*Session).edit},
	"4": {run: (*Session).delete}, "delete": {run: (*Session).delete},
	"5": {run: (*Session).display}, "display": {run: (*Session).display},
	"6": {run: (*Session).save}, "save": {run: (*Session).save},
	"7": {run: (*Session).load}, "load": {run: (*Session).load},
	"8": {run: (*Session).export}, "export": {run: (*Session).export},
	"9": {run: (*Session).search}, "search": {run: (*Session).search},
	"0": {quit: true}, "quit": {quit: true}, "q": {quit: true},
}

// discardOK asks before throwing away unsaved changes. It returns true when
// there is nothing to lose.
func (s *Session) discardOK(ctx context.Context, question string) (bool, error) {
	if s.doc == nil || !s.dirty {
		return true, nil
	}
	return s.console.Confirm(ctx, question)
}

func (s *Session) create(ctx context.Context) error {
	ok, err := s.discardOK(ctx, "You have unsaved changes. Discard them and start a new tree?")
	if err != nil {
		return err
	}
	if !ok {
		s.console.Println("Cancelled.")
		return nil
	}

	name, err := s.console.Prompt(ctx, "Tree name: ")
	if err != nil {
		return err
	}
	content, err := s.console.Prompt(ctx, "Root content: ")
	if err != nil {
		return err
	}

	doc, err := tree.New(name, content)
	if err != nil {
		return err
	}
	s.doc = doc
	// Never saved, so everything is unsaved.
	s.dirty = true
	s.path = ""
	s.seen = fingerprint{}
	s.logger.Info("tree created", zap.String("document", doc.Name))
	s.console.Printf("Created tree %q with root [%s].\n", doc.Name, doc.Root.ID)
	return nil
}

func (s *Session) add(ctx context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	s.showTree(doc)

	parent, err := s.console.Prompt(ctx, "Parent node id (Enter for root): ")
	if err != nil {
		return err
	}
	if parent == "" {
		parent = tree.RootAlias
	}
	if _, err := doc.Find(parent); err != nil {
		return err
	}
	content, err := s.console.Prompt(ctx, "Content: ")
	if err != nil {
		return err
	}

	node, err := doc.Add(parent, content)
	if err != nil {
		return err
	}
	s.dirty = true
	s.console.Printf("Added [%s] under [%s].\n", node.ID, doc.ResolveID(parent))
	return nil
}

func (s *Session) edit(ctx context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	s.showTree(doc)

	id, err := s.console.Prompt(ctx, "Node id to edit (Enter for root): ")
	if err != nil {
		return err
	}
	if id == "" {
		id = tree.RootAlias
	}
	node, err := doc.Find(id)
	if err != nil {
		return err
	}
	s.console.Printf("Current: %s\n", node.Content)

	content, err := s.console.Prompt(ctx, "New content: ")
	if err != nil {
		return err
	}
	if err := doc.Edit(id, content); err != nil {
		return err
	}
	s.dirty = true
	s.console.Printf("Updated [%s].\n", node.ID)
	return nil
}

func (s *Session) delete(ctx context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	s.showTree(doc)

	id, err := s.console.Prompt(ctx, "Node id to delete: ")
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: node id", ErrEmptyInput)
	}
	if doc.IsRoot(id) {
		return tree.ErrRootDeletion
	}
	node, err := doc.Find(id)
	if err != nil {
		return err
	}
	size, err := doc.Subtree(id)
	if err != nil {
		return err
	}

	question := fmt.Sprintf("Delete [%s] %q", node.ID, node.Content)
	if size > 1 {
		question += fmt.Sprintf(" and its %d descendant(s)", size-1)
	}
	ok, err := s.console.Confirm(ctx, question+"?")
	if err != nil {
		return err
	}
	if !ok {
		s.console.Println("Cancelled.")
		return nil
	}

	removed, err := doc.Delete(id)
	if err != nil {
		return err
	}
	s.dirty = true
	s.console.Printf("Deleted %d node(s).\n", removed)
	return nil
}

func (s *Session) display(context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	return render.Display(s.console.Out(), doc, render.Options{Plain: s.plain})
}

// showTree prints the compact tree before an id prompt.
func (s *Session) showTree(doc *tree.Document) {
	if err := render.Display(s.console.Out(), doc, render.Options{Plain: s.plain, HideMeta: true}); err != nil {
		s.logger.Warn("rendering tree", zap.Error(err))
	}
}

func (s *Session) save(ctx context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	path := s.store.Path(doc.Name)

	var question string
	switch {
	case path == s.path && s.externallyModified():
		question = fmt.Sprintf("%s was modified outside this session since it was loaded. Overwrite anyway (a backup is kept)?", path)
	case s.store.Exists(doc.Name):
		question = fmt.Sprintf("%s already exists. Overwrite (a backup is kept)?", path)
	}
	if question != "" {
		ok, err := s.console.Confirm(ctx, question)
		if err != nil {
			return err
		}
		if !ok {
			s.console.Println("Save cancelled.")
			return nil
		}
	}

	written, err := s.store.Save(doc)
	if err != nil {
		return err
	}
	s.dirty = false
	s.track(written)

	if s.index != nil {
		if err := s.index.Put(doc); err != nil {
			s.logger.Warn("updating search index", zap.String("document", doc.Name), zap.Error(err))
		}
	}
	s.console.Printf("Saved to %s.\n", written)
	return nil
}

func (s *Session) load(ctx context.Context) error {
	ok, err := s.discardOK(ctx, "You have unsaved changes. Discard them and load another tree?")
	if err != nil {
		return err
	}
	if !ok {
		s.console.Println("Load cancelled.")
		return nil
	}

	entries, err := s.store.List("")
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.console.Println("No saved trees.")
		return nil
	}
	for i, e := range entries {
		s.console.Printf("%3d) %-24s %8s  modified %s\n", i+1, e.Name,
			humanize.Bytes(uint64(e.Size)), humanize.Time(e.Modified))
	}

	answer, err := s.console.Prompt(ctx, "Tree number: ")
	if err != nil {
		return err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n < 1 || n > len(entries) {
		return fmt.Errorf("%w: %q (choose 1-%d)", ErrInvalidSelection, answer, len(entries))
	}
	entry := entries[n-1]

	doc, err := s.store.Load(entry.Name)
	if err != nil {
		return err
	}
	s.doc = doc
	s.dirty = false
	s.track(entry.Path)
	s.logger.Info("tree loaded", zap.String("document", doc.Name), zap.Int("nodes", doc.Len()))
	s.console.Printf("Loaded %q (%d nodes).\n", doc.Name, doc.Len())
	return nil
}

func (s *Session) export(ctx context.Context) error {
	doc, err := s.requireDoc()
	if err != nil {
		return err
	}
	if s.exporter == nil {
		return errors.New("export is not configured")
	}
	ext := s.exporter.Converter().Ext()
	filename, err := s.console.Prompt(ctx, fmt.Sprintf("Output file name (Enter for %s.%s): ", doc.Name, ext))
	if err != nil {
		return err
	}

	path, err := s.exporter.Export(ctx, doc, filename)
	if err != nil {
		return err
	}
	s.console.Printf("Exported to %s.\n", path)
	return nil
}

func (s *Session) search(ctx context.Context) error {
	if s.index == nil {
		return ErrSearchUnavailable
	}
	query, err := s.console.Prompt(ctx, "Search for: ")
	if err != nil {
		return err
	}
	if query == "" {
		return fmt.Errorf("%w: search query", ErrEmptyInput)
	}

	hits, err := s.index.Search(query, index.DefaultLimit)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		s.console.Println("No matches.")
		return nil
	}
	for _, h := range hits {
		s.console.Printf("  %s [%s] %s\n", h.Document, h.NodeID, h.Content)
	}
	s.console.Printf("%d match(es). Saved trees only; unsaved edits are not searched.\n", len(hits))
	return nil
}

// quit offers to save a dirty document. If the user wanted to save but then
// declined the overwrite prompt, they are asked once more before leaving.
func (s *Session) quit(ctx context.Context) (bool, error) {
	if s.dirty {
		ok, err := s.console.Confirm(ctx, "Save changes before quitting?")
		if err != nil {
			return false, err
		}
		if ok {
			if err := s.save(ctx); err != nil {
				return false, err
			}
			if s.dirty {
				leave, err := s.console.Confirm(ctx, "Quit without saving?")
				if err != nil || !leave {
					return false, err
				}
			}
		}
	}
	s.console.Println("Goodbye.")
	return true, nil
}
