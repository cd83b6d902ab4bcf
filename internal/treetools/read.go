package treetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/braintree/internal/render"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the tree_list MCP tool.
type ListTool struct {
	store store.Store
}

// NewListTool creates a ListTool.
func NewListTool(st store.Store) *ListTool {
	return &ListTool{store: st}
}

// Definition returns the MCP tool definition for tree_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_list",
		mcp.WithDescription("List stored trees with their size and last modification time."),
		mcp.WithString("match",
			mcp.Description("Optional glob filter on tree names (e.g. 'work-*', '{a,b}*')"),
		),
	)
}

// Handle processes the tree_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.store.List(req.GetString("match", ""))
	if err != nil {
		return failure("list", err), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No trees stored yet. Use tree_create to start one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d tree(s):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s (%s, modified %s)\n", e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.Modified))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ShowTool handles the tree_show MCP tool.
type ShowTool struct {
	lib *Library
}

// NewShowTool creates a ShowTool.
func NewShowTool(lib *Library) *ShowTool {
	return &ShowTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_show.
func (t *ShowTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_show",
		mcp.WithDescription("Show a tree with its metadata. Each line is '[id] content'; use the ids with the node tools."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
	)
}

// Handle processes the tree_show tool call.
func (t *ShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	doc, err := t.lib.Load(name)
	if err != nil {
		return failure("show", err), nil
	}

	var b strings.Builder
	if err := render.Display(&b, doc, render.Options{Plain: true}); err != nil {
		return failure("show", err), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// OutlineTool handles the tree_outline MCP tool.
type OutlineTool struct {
	lib *Library
}

// NewOutlineTool creates an OutlineTool.
func NewOutlineTool(lib *Library) *OutlineTool {
	return &OutlineTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_outline.
func (t *OutlineTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_outline",
		mcp.WithDescription("Return a tree as a markdown outline: a heading with the tree name and nested bullets."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
	)
}

// Handle processes the tree_outline tool call.
func (t *OutlineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	doc, err := t.lib.Load(name)
	if err != nil {
		return failure("outline", err), nil
	}

	var b strings.Builder
	if err := render.Outline(&b, doc); err != nil {
		return failure("outline", err), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
