package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/HendryAvila/braintree/internal/config"
	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

func sampleDoc(t *testing.T) *tree.Document {
	t.Helper()
	doc, err := tree.New("Project", "Goal")
	require.NoError(t, err)
	a, err := doc.Add(tree.RootAlias, "Subtask <1>")
	require.NoError(t, err)
	_, err = doc.Add(a.ID, "Detail")
	require.NoError(t, err)
	return doc
}

// fakeConverter records its input and optionally fails after writing junk.
type fakeConverter struct {
	got     []byte
	failErr error
}

func (f *fakeConverter) Ext() string { return "out" }

func (f *fakeConverter) Convert(_ context.Context, md []byte, dst string) error {
	f.got = md
	if err := os.WriteFile(dst, []byte("partial"), 0o644); err != nil {
		return err
	}
	return f.failErr
}

// fakePandoc writes a shell script that copies stdin to the -o target.
func fakePandoc(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converter")
	}
	path := filepath.Join(t.TempDir(), "pandoc")
	script := "#!/bin/sh\nout=\"\"\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"-o\" ]; then out=\"$2\"; fi\n  shift\ndone\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// --- Intermediate ---

func TestIntermediate_IsIndentedOutline(t *testing.T) {
	md, err := Intermediate(sampleDoc(t))
	require.NoError(t, err)
	assert.Equal(t, "# Project\n\n- Goal\n  - Subtask <1>\n    - Detail\n", string(md))
}

// --- Export ---

func TestExport_WritesOutputAndRemovesTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	conv := &fakeConverter{}
	ex := New(dir, conv, nil)

	path, err := ex.Export(context.Background(), sampleDoc(t), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Project.out"), path)
	assert.Contains(t, string(conv.got), "- Goal")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestExport_CustomFilename(t *testing.T) {
	ex := New(t.TempDir(), &fakeConverter{}, nil)

	path, err := ex.Export(context.Background(), sampleDoc(t), "my notes.out")
	require.NoError(t, err)
	assert.Equal(t, "my_notes.out", filepath.Base(path))

	_, err = ex.Export(context.Background(), sampleDoc(t), "!!!")
	assert.ErrorIs(t, err, tree.ErrEmptyName)
}

func TestExport_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	ex := New(dir, &fakeConverter{failErr: errors.New("boom")}, nil)
	doc := sampleDoc(t)
	before := doc.Clone()

	_, err := ex.Export(context.Background(), doc, "")
	require.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), "boom")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial output must be removed")
	assert.Equal(t, before.Root, doc.Root)
}

func TestExport_HTML(t *testing.T) {
	dir := t.TempDir()
	ex := New(dir, HTMLConverter{}, nil)

	path, err := ex.Export(context.Background(), sampleDoc(t), "")
	require.NoError(t, err)
	assert.Equal(t, ".html", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, "<title>Project</title>")
	assert.Contains(t, page, "<h1>Project</h1>")
	assert.Contains(t, page, "<li>Goal")
	assert.Contains(t, page, "Subtask &lt;1&gt;")
	assert.Equal(t, 3, strings.Count(page, "<ul>"))
}

func TestHTMLConverter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := HTMLConverter{}.Convert(ctx, []byte("# x"), filepath.Join(t.TempDir(), "x.html"))
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Pandoc ---

func TestPandoc_Success(t *testing.T) {
	bin := fakePandoc(t, "cat > \"$out\"\n")
	ex := New(t.TempDir(), &PandocConverter{Binary: bin}, nil)

	path, err := ex.Export(context.Background(), sampleDoc(t), "")
	require.NoError(t, err)
	assert.Equal(t, "Project.docx", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "  - Subtask <1>")
}

func TestPandoc_FailureReportsStderr(t *testing.T) {
	bin := fakePandoc(t, "echo partial > \"$out\"\necho 'unknown writer' >&2\nexit 3\n")
	dir := t.TempDir()
	ex := New(dir, &PandocConverter{Binary: bin}, nil)

	_, err := ex.Export(context.Background(), sampleDoc(t), "")
	require.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), "unknown writer")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPandoc_EmptyOutputIsFailure(t *testing.T) {
	bin := fakePandoc(t, "exit 0\n")
	ex := New(t.TempDir(), &PandocConverter{Binary: bin}, nil)

	_, err := ex.Export(context.Background(), sampleDoc(t), "")
	assert.ErrorIs(t, err, ErrConversion)
}

// --- Startup checks ---

func TestCheckConverter(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	err := CheckConverter(&PandocConverter{})
	assert.ErrorIs(t, err, ErrConverterMissing)
	assert.Contains(t, err.Error(), `"pandoc"`)

	assert.NoError(t, CheckConverter(HTMLConverter{}))

	lookPath = func(string) (string, error) { return "/usr/bin/pandoc", nil }
	assert.NoError(t, CheckConverter(&PandocConverter{}))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ExportDir = t.TempDir()

	ex, err := NewFromConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "docx", ex.Converter().Ext())

	cfg.ExportFormat = config.FormatHTML
	ex, err = NewFromConfig(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "html", ex.Converter().Ext())

	cfg.ExportFormat = "pdf"
	_, err = NewFromConfig(&cfg, nil)
	assert.Error(t, err)
}
