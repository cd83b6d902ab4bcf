package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// lookPath is a package-level var so tests can fake installed programs.
var lookPath = exec.LookPath

// PandocConverter runs pandoc as a subprocess, feeding markdown on stdin.
type PandocConverter struct {
	// Binary is the program to run; empty means "pandoc".
	Binary string
	// Format is the pandoc writer; empty means "docx".
	Format string
}

func (p *PandocConverter) binary() string {
	if p.Binary == "" {
		return "pandoc"
	}
	return p.Binary
}

// Ext implements Converter.
func (p *PandocConverter) Ext() string {
	if p.Format == "" {
		return "docx"
	}
	return p.Format
}

// Convert implements Converter.
func (p *PandocConverter) Convert(ctx context.Context, markdown []byte, dst string) error {
	cmd := exec.CommandContext(ctx, p.binary(), "-f", "markdown", "-t", p.Ext(), "-o", dst)
	cmd.Stdin = bytes.NewReader(markdown)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.binary(), err, msg)
		}
		return fmt.Errorf("%s: %w", p.binary(), err)
	}
	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		return fmt.Errorf("%s produced no output", p.binary())
	}
	return nil
}

// HTMLConverter renders markdown to a standalone HTML page in-process.
type HTMLConverter struct{}

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Ext implements Converter.
func (HTMLConverter) Ext() string { return "html" }

// Convert implements Converter.
func (HTMLConverter) Convert(ctx context.Context, md []byte, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := mdRenderer.Convert(md, &body); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(pageTitle(md)))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return os.WriteFile(dst, page.Bytes(), 0o644)
}

// pageTitle uses the first markdown heading as the page title.
func pageTitle(md []byte) string {
	first, _, _ := bytes.Cut(md, []byte("\n"))
	return strings.TrimSpace(strings.TrimPrefix(string(first), "#"))
}
