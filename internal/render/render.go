// Package render turns a tree.Document into text. It has two consumers of
// the same pre-order traversal:
//   - Display: the interactive box-drawing view with ids and metadata.
//   - Outline: the indented bullet markup handed to export converters.
//
// Neither function mutates the document.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Box-drawing pieces used by Display.
const (
	branchMid  = "├── "
	branchLast = "└── "
	pipeCont   = "│   "
	pipeBlank  = "    "
	rootMarker = "● "
)

// TimeLayout is how Display prints document timestamps.
const TimeLayout = "2006-01-02 15:04:05 MST"

// Options tweak Display output.
type Options struct {
	// Plain disables terminal styling (bold root).
	Plain bool
	// Now is used for relative ages; nil means time.Now.
	Now func() time.Time
	// HideMeta skips the name/created/modified header.
	HideMeta bool
}

// Display writes the document metadata followed by the tree, one node per
// line as "[id] content" with connectors showing sibling structure.
func Display(w io.Writer, doc *tree.Document, opts Options) error {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	bold := func(s string) string { return s }
	if !opts.Plain {
		style := lipgloss.NewRenderer(w).NewStyle().Bold(true)
		bold = func(s string) string { return style.Render(s) }
	}

	var b strings.Builder
	if !opts.HideMeta {
		fmt.Fprintf(&b, "Document: %s\n", bold(doc.Name))
		fmt.Fprintf(&b, "Created:  %s\n", doc.Created.Format(TimeLayout))
		fmt.Fprintf(&b, "Modified: %s (%s)\n", doc.Modified.Format(TimeLayout),
			humanize.RelTime(doc.Modified, now(), "ago", "from now"))
		fmt.Fprintf(&b, "Nodes:    %d\n\n", doc.Len())
	}

	for v := range doc.Walk() {
		label := fmt.Sprintf("[%s] %s", v.Node.ID, singleLine(v.Node.Content))
		if v.Depth == 0 {
			b.WriteString(bold(rootMarker + label))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(Prefix(v))
		b.WriteString(label)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Prefix returns the connector string drawn before a non-root node:
// one continuation column per ancestor below the root, then the branch.
func Prefix(v tree.Visit) string {
	if v.Depth == 0 {
		return ""
	}
	var b strings.Builder
	for _, last := range v.Last[:len(v.Last)-1] {
		if last {
			b.WriteString(pipeBlank)
		} else {
			b.WriteString(pipeCont)
		}
	}
	if v.IsLast() {
		b.WriteString(branchLast)
	} else {
		b.WriteString(branchMid)
	}
	return b.String()
}

// Outline writes the document as a markdown heading followed by nested
// bullets, two spaces of indentation per depth level. Ids are omitted.
func Outline(w io.Writer, doc *tree.Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Name)
	for v := range doc.Walk() {
		b.WriteString(strings.Repeat("  ", v.Depth))
		b.WriteString("- ")
		b.WriteString(singleLine(v.Node.Content))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// singleLine folds multi-line content onto one line so it cannot break the
// tree layout.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
