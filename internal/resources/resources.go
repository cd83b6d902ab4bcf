// Package resources implements MCP resource handlers for stored trees.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (braintree://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/braintree/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// IndexURI lists every stored tree.
	IndexURI = "braintree://trees"
	// treePrefix is followed by a tree name.
	treePrefix = IndexURI + "/"
)

// Handler manages tree resource endpoints.
type Handler struct {
	store store.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}

// IndexResource returns the MCP resource definition for the tree list.
func (h *Handler) IndexResource() mcp.Resource {
	return mcp.NewResource(
		IndexURI,
		"Stored trees",
		mcp.WithResourceDescription("Names, sizes and modification times of all stored trees"),
		mcp.WithMIMEType("application/json"),
	)
}

// TreeTemplate returns the MCP resource template for a single tree.
func (h *Handler) TreeTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		treePrefix+"{name}",
		"Tree document",
		mcp.WithTemplateDescription("A stored tree as JSON: name, timestamps and the nested nodes"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// indexEntry is the JSON shape of one tree in the index resource.
type indexEntry struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// HandleIndex returns the tree list as JSON.
func (h *Handler) HandleIndex(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := h.store.List("")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	out := make([]indexEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, indexEntry{
			Name:     e.Name,
			URI:      treePrefix + e.Name,
			Size:     e.Size,
			Modified: e.Modified.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return jsonResource(req.Params.URI, out)
}

// HandleTree returns one stored tree as JSON.
func (h *Handler) HandleTree(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, ok := strings.CutPrefix(req.Params.URI, treePrefix)
	if !ok || name == "" {
		return nil, fmt.Errorf("unexpected resource URI %q", req.Params.URI)
	}

	doc, err := h.store.Load(name)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, doc)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
