package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/HendryAvila/braintree/internal/export"
	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

// syncBuffer is a bytes.Buffer safe to read while a session writes to it.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// fakeIndex records puts and serves canned hits.
type fakeIndex struct {
	puts []string
	hits []index.Hit
}

func (f *fakeIndex) Put(doc *tree.Document) error {
	f.puts = append(f.puts, doc.Name)
	return nil
}

func (f *fakeIndex) Search(string, int) ([]index.Hit, error) {
	return f.hits, nil
}

type fixture struct {
	s     *Session
	out   *syncBuffer
	store *store.FileStore
	index *fakeIndex
}

func newFixture(t *testing.T, in io.Reader) *fixture {
	t.Helper()
	dir := t.TempDir()
	fs := store.NewFileStore(filepath.Join(dir, "trees"), nil)
	ix := &fakeIndex{}
	out := &syncBuffer{}
	s := New(Options{
		Store:    fs,
		Exporter: export.New(filepath.Join(dir, "exports"), export.HTMLConverter{}, nil),
		Index:    ix,
		In:       in,
		Out:      out,
		Plain:    true,
	})
	return &fixture{s: s, out: out, store: fs, index: ix}
}

// scripted builds a fixture whose input is the given lines.
func scripted(t *testing.T, lines ...string) *fixture {
	t.Helper()
	input := ""
	if len(lines) > 0 {
		input = strings.Join(lines, "\n") + "\n"
	}
	return newFixture(t, strings.NewReader(input))
}

// sampleDoc returns Project -> {A -> {C}, B}.
func sampleDoc(t *testing.T) (doc *tree.Document, a, b, c *tree.Node) {
	t.Helper()
	doc, err := tree.New("Project", "Goal")
	require.NoError(t, err)
	a, err = doc.Add(tree.RootAlias, "A")
	require.NoError(t, err)
	b, err = doc.Add(tree.RootAlias, "B")
	require.NoError(t, err)
	c, err = doc.Add(a.ID, "C")
	require.NoError(t, err)
	return doc, a, b, c
}

func (f *fixture) open(doc *tree.Document, dirty bool) {
	f.s.doc = doc
	f.s.dirty = dirty
}

// --- Full runs ---

func TestRun_CreateAddSaveQuit(t *testing.T) {
	f := scripted(t,
		"1", "My Project", "Goal",
		"2", "", "Subtask",
		"6",
		"0",
	)

	require.NoError(t, f.s.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, `Created tree "My_Project"`)
	assert.Contains(t, out, "Saved to")
	assert.Contains(t, out, "Goodbye.")
	assert.False(t, f.s.Dirty())

	doc, err := f.store.Load("My_Project")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Len())
	require.Len(t, doc.Root.Children, 1)
	assert.Equal(t, "Subtask", doc.Root.Children[0].Content)
	assert.Equal(t, []string{"My_Project"}, f.index.puts)
}

func TestRun_ErrorsDoNotEndSession(t *testing.T) {
	f := scripted(t, "2", "x", "0")

	require.NoError(t, f.s.Run(context.Background()))
	out := f.out.String()
	assert.Contains(t, out, "Error: no tree is open")
	assert.Contains(t, out, "Error: invalid selection")
	assert.Contains(t, out, "Goodbye.")
}

func TestRun_EndOfInputDiscardsAfterPrompt(t *testing.T) {
	f := scripted(t, "1", "Project", "Goal")

	require.NoError(t, f.s.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Save changes before exiting? [y/N]")
	assert.Contains(t, f.out.String(), "Unsaved changes discarded.")
	assert.False(t, f.store.Exists("Project"))
}

func TestRun_InterruptOffersSave(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	f := newFixture(t, pr)

	interrupted := false
	f.s.onInterrupt = func() { interrupted = true }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.s.Run(ctx) }()

	_, err := io.WriteString(pw, "1\nProject\nGoal\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Count(f.out.String(), "Choose an option: ") == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "Save changes before exiting?")
	}, 2*time.Second, 10*time.Millisecond)
	_, err = io.WriteString(pw, "y\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after interrupt")
	}
	assert.True(t, interrupted)
	assert.Contains(t, f.out.String(), "Interrupted.")
	assert.True(t, f.store.Exists("Project"))
}

func TestRun_InterruptWhenCleanExitsQuietly(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	f := newFixture(t, pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.s.Run(ctx))
	assert.NotContains(t, f.out.String(), "Save changes")
}

// hangingConverter blocks until its context ends and then fails the way an
// interrupted pandoc does.
type hangingConverter struct {
	started chan struct{}
}

func (h *hangingConverter) Ext() string { return "docx" }

func (h *hangingConverter) Convert(ctx context.Context, _ []byte, _ string) error {
	close(h.started)
	<-ctx.Done()
	return errors.New("pandoc: signal: interrupt")
}

func TestRun_InterruptDuringExportOffersSave(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	f := newFixture(t, pr)
	conv := &hangingConverter{started: make(chan struct{})}
	f.s.exporter = export.New(t.TempDir(), conv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.s.Run(ctx) }()

	_, err := io.WriteString(pw, "1\nProject\nGoal\n8\n\n")
	require.NoError(t, err)
	select {
	case <-conv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("export never started")
	}

	cancel()
	require.Eventually(t, func() bool {
		return strings.Contains(f.out.String(), "Save changes before exiting?")
	}, 2*time.Second, 10*time.Millisecond)
	_, err = io.WriteString(pw, "y\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after interrupt")
	}
	assert.Contains(t, f.out.String(), "Interrupted.")
	assert.True(t, f.store.Exists("Project"))
}

func TestRun_LongLineIsReadWhole(t *testing.T) {
	long := strings.Repeat("x", 70000)
	f := scripted(t, "1", "Project", "Goal", "2", "", long, "6", "0")

	require.NoError(t, f.s.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Goodbye.")
	assert.NotContains(t, f.out.String(), "discarded")

	doc, err := f.store.Load("Project")
	require.NoError(t, err)
	require.Len(t, doc.Root.Children, 1)
	assert.Equal(t, long, doc.Root.Children[0].Content)
}

func TestRun_InputFailureSavesDirtyTree(t *testing.T) {
	in := io.MultiReader(
		strings.NewReader("1\nProject\nGoal\n"),
		iotest.ErrReader(errors.New("device gone")),
	)
	f := newFixture(t, in)

	err := f.s.Run(context.Background())
	require.ErrorIs(t, err, ErrInput)
	assert.Contains(t, f.out.String(), "Unsaved changes written to")
	assert.False(t, f.s.Dirty())
	assert.True(t, f.store.Exists("Project"))
}

func TestConsole_CRLFAndUnterminatedLastLine(t *testing.T) {
	c := NewConsole(strings.NewReader("one\r\ntwo"), io.Discard)
	ctx := context.Background()

	line, err := c.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", line)
	line, err = c.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", line)
	_, err = c.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

// --- Dispatch ---

func TestDispatch_UnknownChoice(t *testing.T) {
	f := scripted(t)
	_, err := f.s.Dispatch(context.Background(), "42")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDispatch_AliasesMatchNumbers(t *testing.T) {
	for _, key := range []string{"create", "add", "edit", "delete", "display", "save", "load", "export", "search", "quit", "q"} {
		_, ok := commands[key]
		assert.True(t, ok, key)
	}
}

func TestCommands_RequireDocument(t *testing.T) {
	f := scripted(t)
	for _, key := range []string{"2", "3", "4", "5", "6", "8"} {
		_, err := f.s.Dispatch(context.Background(), key)
		assert.ErrorIs(t, err, ErrNoDocument, "command %s", key)
	}
}

// --- Create ---

func TestCreate_DirtyAsksBeforeDiscarding(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "n")
	f.open(doc, true)

	_, err := f.s.Dispatch(context.Background(), "1")
	require.NoError(t, err)
	assert.Same(t, doc, f.s.Document())
	assert.Contains(t, f.out.String(), "Cancelled.")
}

func TestCreate_InvalidNameKeepsPreviousDocument(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "!!!", "Goal")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "1")
	require.ErrorIs(t, err, tree.ErrEmptyName)
	assert.Same(t, doc, f.s.Document())
}

// --- Add / Edit ---

func TestAdd_UnderChild(t *testing.T) {
	doc, a, _, _ := sampleDoc(t)
	f := scripted(t, a.ID, "D")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "2")
	require.NoError(t, err)
	assert.True(t, f.s.Dirty())

	got, err := doc.Find(a.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 2)
	assert.Equal(t, "D", got.Children[1].Content)
}

func TestAdd_UnknownParentStopsBeforeContent(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "0000")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "2")
	require.ErrorIs(t, err, tree.ErrNodeNotFound)
	assert.NotContains(t, f.out.String(), "Content: ")
	assert.False(t, f.s.Dirty())
}

func TestEdit_ShowsCurrentAndUpdates(t *testing.T) {
	doc, _, b, _ := sampleDoc(t)
	f := scripted(t, b.ID, "B2")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "3")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "Current: B")

	got, err := doc.Find(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Content)
	assert.True(t, f.s.Dirty())
}

func TestEdit_BlankContentRejected(t *testing.T) {
	doc, _, b, _ := sampleDoc(t)
	f := scripted(t, b.ID, "   ")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "3")
	require.ErrorIs(t, err, tree.ErrEmptyContent)
	assert.False(t, f.s.Dirty())
}

// --- Delete ---

func TestDelete_RootRefusedWithoutPrompt(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "root")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "4")
	require.ErrorIs(t, err, tree.ErrRootDeletion)
	assert.NotContains(t, f.out.String(), "[y/N]")
	assert.Equal(t, 4, doc.Len())
}

func TestDelete_ConfirmShowsSubtreeSize(t *testing.T) {
	doc, a, _, _ := sampleDoc(t)
	f := scripted(t, a.ID, "n", a.ID, "y")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "4")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "and its 1 descendant(s)?")
	assert.Contains(t, f.out.String(), "Cancelled.")
	assert.Equal(t, 4, doc.Len())
	assert.False(t, f.s.Dirty())

	_, err = f.s.Dispatch(context.Background(), "4")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "Deleted 2 node(s).")
	assert.Equal(t, 2, doc.Len())
	assert.True(t, f.s.Dirty())
}

func TestDelete_UnknownID(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "1234x")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "4")
	assert.ErrorIs(t, err, tree.ErrNodeNotFound)
}

// --- Save ---

func TestSave_ExistingFileNeedsConfirmation(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "n", "y")
	_, err := f.store.Save(doc)
	require.NoError(t, err)

	fresh, err := tree.New("Project", "Other")
	require.NoError(t, err)
	f.open(fresh, true)

	_, err = f.s.Dispatch(context.Background(), "6")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "already exists")
	assert.Contains(t, f.out.String(), "Save cancelled.")
	assert.True(t, f.s.Dirty())
	stored, err := f.store.Load("Project")
	require.NoError(t, err)
	assert.Equal(t, "Goal", stored.Root.Content)

	_, err = f.s.Dispatch(context.Background(), "6")
	require.NoError(t, err)
	assert.False(t, f.s.Dirty())
	stored, err = f.store.Load("Project")
	require.NoError(t, err)
	assert.Equal(t, "Other", stored.Root.Content)
	assert.FileExists(t, f.store.BackupPath("Project"))
}

func TestSave_ExternalChangeNeedsConfirmation(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "n")
	f.open(doc, true)

	// No file yet, so no prompt.
	_, err := f.s.Dispatch(context.Background(), "6")
	require.NoError(t, err)
	assert.False(t, f.s.externallyModified())

	other, err := tree.New("Project", "Written elsewhere")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.store.Path("Project"), encode(t, other), 0o600))
	assert.True(t, f.s.externallyModified())

	require.NoError(t, doc.Edit(tree.RootAlias, "Mine"))
	f.s.dirty = true

	_, err = f.s.Dispatch(context.Background(), "6")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "was modified outside this session")
	assert.Contains(t, f.out.String(), "Save cancelled.")

	stored, err := f.store.Load("Project")
	require.NoError(t, err)
	assert.Equal(t, "Written elsewhere", stored.Root.Content)
}

// encode returns the on-disk bytes for doc.
func encode(t *testing.T, doc *tree.Document) []byte {
	t.Helper()
	path, err := store.NewFileStore(t.TempDir(), nil).Save(doc)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// --- Load ---

func TestLoad_ByNumber(t *testing.T) {
	f := scripted(t, "2")
	for _, name := range []string{"beta", "alpha"} {
		doc, err := tree.New(name, "root of "+name)
		require.NoError(t, err)
		_, err = f.store.Save(doc)
		require.NoError(t, err)
	}

	_, err := f.s.Dispatch(context.Background(), "7")
	require.NoError(t, err)
	require.NotNil(t, f.s.Document())
	assert.Equal(t, "beta", f.s.Document().Name)
	assert.False(t, f.s.Dirty())
	assert.Equal(t, f.store.Path("beta"), f.s.path)
	assert.Contains(t, f.out.String(), "1) alpha")
}

func TestLoad_InvalidSelection(t *testing.T) {
	f := scripted(t, "9", "abc")
	doc, err := tree.New("only", "x")
	require.NoError(t, err)
	_, err = f.store.Save(doc)
	require.NoError(t, err)

	_, err = f.s.Dispatch(context.Background(), "7")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	_, err = f.s.Dispatch(context.Background(), "7")
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Nil(t, f.s.Document())
}

func TestLoad_CorruptFileLeavesStateUnchanged(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "1")
	f.open(doc, false)
	require.NoError(t, os.MkdirAll(f.store.Dir(), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "Broken.json"), []byte("{not json"), 0o600))

	_, err := f.s.Dispatch(context.Background(), "7")
	require.ErrorIs(t, err, store.ErrCorrupt)
	assert.Same(t, doc, f.s.Document())
}

func TestLoad_EmptyStore(t *testing.T) {
	f := scripted(t)
	_, err := f.s.Dispatch(context.Background(), "7")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "No saved trees.")
}

func TestLoad_DirtyDeclined(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "n")
	f.open(doc, true)

	_, err := f.s.Dispatch(context.Background(), "7")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "Load cancelled.")
	assert.Same(t, doc, f.s.Document())
}

// --- Export / Search ---

func TestExport_DefaultName(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "")
	f.open(doc, false)

	_, err := f.s.Dispatch(context.Background(), "8")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.s.exporter.Dir(), "Project.html"))
	assert.False(t, f.s.Dirty(), "export does not modify the document")
}

func TestSearch(t *testing.T) {
	f := scripted(t, "goal", "")
	f.index.hits = []index.Hit{{Document: "Project", NodeID: "1234", Content: "Goal"}}

	_, err := f.s.Dispatch(context.Background(), "9")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "Project [1234] Goal")

	_, err = f.s.Dispatch(context.Background(), "9")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestSearch_Unavailable(t *testing.T) {
	f := scripted(t)
	f.s.index = nil
	_, err := f.s.Dispatch(context.Background(), "9")
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

// --- Quit ---

func TestQuit_DirtyDeclineSave(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "n")
	f.open(doc, true)

	quit, err := f.s.Dispatch(context.Background(), "0")
	require.NoError(t, err)
	assert.True(t, quit)
	assert.False(t, f.store.Exists("Project"))
}

func TestQuit_SaveThenDeclineOverwriteStays(t *testing.T) {
	doc, _, _, _ := sampleDoc(t)
	f := scripted(t, "y", "n", "n")
	_, err := f.store.Save(doc)
	require.NoError(t, err)
	f.open(doc, true)

	quit, err := f.s.Dispatch(context.Background(), "0")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.True(t, f.s.Dirty())
}

func TestQuit_Clean(t *testing.T) {
	f := scripted(t)
	quit, err := f.s.Dispatch(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, quit)
}
