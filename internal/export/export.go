// Package export turns a document into a word-processor or web file.
//
// The pipeline has two halves:
//   - Intermediate: render.Outline produces markdown (heading + nested bullets).
//   - Conversion: a Converter turns that markdown into the output format,
//     either by running an external program (pandoc → .docx) or in-process
//     (goldmark → .html).
//
// Output is written to a temp path and renamed into place, so a failed
// conversion never leaves a partial file behind.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HendryAvila/braintree/internal/config"
	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/render"
	"github.com/HendryAvila/braintree/internal/tree"
	"go.uber.org/zap"
)

var (
	// ErrConversion indicates the converter failed; no output was kept.
	ErrConversion = errors.New("conversion failed")

	// ErrConverterMissing indicates the configured converter program is not
	// installed. Checked once at startup.
	ErrConverterMissing = errors.New("converter not found")
)

// Converter turns markdown into a document at dst.
type Converter interface {
	Convert(ctx context.Context, markdown []byte, dst string) error
	// Ext is the output extension without the dot ("docx", "html").
	Ext() string
}

// Exporter writes converted documents into a directory.
type Exporter struct {
	dir       string
	converter Converter
	logger    *zap.Logger
}

// New creates an exporter writing into dir with the given converter.
func New(dir string, conv Converter, logger *zap.Logger) *Exporter {
	return &Exporter{dir: dir, converter: conv, logger: logging.OrNop(logger)}
}

// NewFromConfig picks the converter matching cfg.ExportFormat.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Exporter, error) {
	conv, err := ConverterFor(cfg.ExportFormat, cfg.Converter)
	if err != nil {
		return nil, err
	}
	return New(cfg.ExportDir, conv, logger), nil
}

// ConverterFor returns the converter for an output format.
func ConverterFor(format, binary string) (Converter, error) {
	switch format {
	case config.FormatDocx:
		return &PandocConverter{Binary: binary}, nil
	case config.FormatHTML:
		return &HTMLConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// CheckConverter verifies an external converter is installed. In-process
// converters always pass.
func CheckConverter(conv Converter) error {
	p, ok := conv.(*PandocConverter)
	if !ok {
		return nil
	}
	if _, err := lookPath(p.binary()); err != nil {
		return fmt.Errorf("%w: %q is required for %s export (install it or set export_format: html)",
			ErrConverterMissing, p.binary(), p.Ext())
	}
	return nil
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Converter returns the active converter.
func (e *Exporter) Converter() Converter {
	return e.converter
}

// Path returns where Export would write for the given filename (empty means
// the document name).
func (e *Exporter) Path(doc *tree.Document, filename string) (string, error) {
	base := doc.Name
	if filename != "" {
		base = tree.SanitizeName(trimExt(filename, e.converter.Ext()))
	}
	if base == "" {
		return "", fmt.Errorf("%w: export filename %q", tree.ErrEmptyName, filename)
	}
	return filepath.Join(e.dir, base+"."+e.converter.Ext()), nil
}

// Intermediate returns the markdown handed to the converter.
func Intermediate(doc *tree.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := render.Outline(&buf, doc); err != nil {
		return nil, fmt.Errorf("rendering outline: %w", err)
	}
	return buf.Bytes(), nil
}

// Export converts doc and returns the output path. The document is only read.
func (e *Exporter) Export(ctx context.Context, doc *tree.Document, filename string) (string, error) {
	dst, err := e.Path(doc, filename)
	if err != nil {
		return "", err
	}
	markdown, err := Intermediate(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	// Keep the real extension on the temp name; pandoc picks its writer from it.
	tmp := filepath.Join(e.dir, fmt.Sprintf(".%s.partial.%s", filepath.Base(dst), e.converter.Ext()))
	if err := e.converter.Convert(ctx, markdown, tmp); err != nil {
		_ = os.Remove(tmp)
		e.logger.Warn("export failed", zap.String("document", doc.Name), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrConversion, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("moving export into place: %w", err)
	}

	e.logger.Info("document exported", zap.String("document", doc.Name), zap.String("path", dst))
	return dst, nil
}

// trimExt drops a trailing ".ext" so "notes.docx" and "notes" name the
// same output.
func trimExt(filename, ext string) string {
	if filepath.Ext(filename) == "."+ext {
		return filename[:len(filename)-len(ext)-1]
	}
	return filename
}
