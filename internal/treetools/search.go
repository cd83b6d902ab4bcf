package treetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/braintree/internal/export"
	"github.com/HendryAvila/braintree/internal/index"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the tree_search MCP tool.
type SearchTool struct {
	lib *Library
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(lib *Library) *SearchTool {
	return &SearchTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_search",
		mcp.WithDescription("Full-text search over the nodes of all stored trees."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to look for; every word must match"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max results (default: %d)", index.DefaultLimit)),
		),
	)
}

// Handle processes the tree_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	if t.lib.index == nil {
		return mcp.NewToolResultError("search index is not available"), nil
	}

	hits, err := t.lib.index.Search(query, intArg(req, "limit", index.DefaultLimit))
	if err != nil {
		return failure("search", err), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No nodes found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d node(s):\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] %s [%s] (depth %d)\n    %s\n", i+1, h.Document, h.NodeID, h.Depth, h.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ExportTool handles the tree_export MCP tool.
type ExportTool struct {
	lib      *Library
	exporter *export.Exporter
}

// NewExportTool creates an ExportTool.
func NewExportTool(lib *Library, ex *export.Exporter) *ExportTool {
	return &ExportTool{lib: lib, exporter: ex}
}

// Definition returns the MCP tool definition for tree_export.
func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_export",
		mcp.WithDescription(fmt.Sprintf("Export a tree as a .%s outline document into %s.",
			t.exporter.Converter().Ext(), t.exporter.Dir())),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
		mcp.WithString("filename",
			mcp.Description("Output file name (default: the tree name)"),
		),
	)
}

// Handle processes the tree_export tool call.
func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	doc, err := t.lib.Load(name)
	if err != nil {
		return failure("export", err), nil
	}
	path, err := t.exporter.Export(ctx, doc, req.GetString("filename", ""))
	if err != nil {
		return failure("export", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Exported %q to %s.", doc.Name, path)), nil
}
