package treetools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/braintree/internal/tree"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateTool handles the tree_create MCP tool.
type CreateTool struct {
	lib *Library
}

// NewCreateTool creates a CreateTool.
func NewCreateTool(lib *Library) *CreateTool {
	return &CreateTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_create.
func (t *CreateTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_create",
		mcp.WithDescription("Create and store a new tree with a single root node."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name; letters, digits, '-' and '_' are kept, spaces become '_'"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Text of the root node"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing tree with the same name (a backup is kept). Default: false"),
		),
	)
}

// Handle processes the tree_create tool call.
func (t *CreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	content := req.GetString("content", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	doc, err := tree.New(name, content)
	if err != nil {
		return failure("create", err), nil
	}
	if err := t.lib.Create(doc, boolArg(req, "overwrite", false)); err != nil {
		return failure("create", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created tree %q with root [%s].", doc.Name, doc.Root.ID)), nil
}

// AddNodeTool handles the tree_add_node MCP tool.
type AddNodeTool struct {
	lib *Library
}

// NewAddNodeTool creates an AddNodeTool.
func NewAddNodeTool(lib *Library) *AddNodeTool {
	return &AddNodeTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_add_node.
func (t *AddNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_add_node",
		mcp.WithDescription("Append a child node under an existing node and save the tree."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Text of the new node"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Id of the parent node (default: root)"),
		),
	)
}

// Handle processes the tree_add_node tool call.
func (t *AddNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	content := req.GetString("content", "")
	parent := req.GetString("parent_id", tree.RootAlias)
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	var added *tree.Node
	doc, err := t.lib.Update(name, func(doc *tree.Document) error {
		n, err := doc.Add(parent, content)
		added = n
		return err
	})
	if err != nil {
		return failure("add node", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added [%s] under [%s] in %q (%d nodes).",
		added.ID, doc.ResolveID(parent), doc.Name, doc.Len())), nil
}

// EditNodeTool handles the tree_edit_node MCP tool.
type EditNodeTool struct {
	lib *Library
}

// NewEditNodeTool creates an EditNodeTool.
func NewEditNodeTool(lib *Library) *EditNodeTool {
	return &EditNodeTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_edit_node.
func (t *EditNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_edit_node",
		mcp.WithDescription("Replace the text of a node and save the tree."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Id of the node to edit ('root' for the root)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("New text"),
		),
	)
}

// Handle processes the tree_edit_node tool call.
func (t *EditNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	id := req.GetString("node_id", "")
	content := req.GetString("content", "")
	if name == "" || id == "" || content == "" {
		return mcp.NewToolResultError("'name', 'node_id' and 'content' are required"), nil
	}

	doc, err := t.lib.Update(name, func(doc *tree.Document) error {
		return doc.Edit(id, content)
	})
	if err != nil {
		return failure("edit node", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Updated [%s] in %q.", doc.ResolveID(id), doc.Name)), nil
}

// DeleteNodeTool handles the tree_delete_node MCP tool.
type DeleteNodeTool struct {
	lib *Library
}

// NewDeleteNodeTool creates a DeleteNodeTool.
func NewDeleteNodeTool(lib *Library) *DeleteNodeTool {
	return &DeleteNodeTool{lib: lib}
}

// Definition returns the MCP tool definition for tree_delete_node.
func (t *DeleteNodeTool) Definition() mcp.Tool {
	return mcp.NewTool("tree_delete_node",
		mcp.WithDescription(
			"Delete a node together with all of its descendants and save the tree. "+
				"Call once without confirm to see how many nodes would go, then again with confirm=true. "+
				"The root cannot be deleted.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Tree name"),
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("Id of the node to delete"),
		),
		mcp.WithBoolean("confirm",
			mcp.Description("Must be true to actually delete. Default: false"),
		),
	)
}

// Handle processes the tree_delete_node tool call.
func (t *DeleteNodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	id := req.GetString("node_id", "")
	if name == "" || id == "" {
		return mcp.NewToolResultError("'name' and 'node_id' are required"), nil
	}

	if !boolArg(req, "confirm", false) {
		doc, err := t.lib.Load(name)
		if err != nil {
			return failure("delete node", err), nil
		}
		if doc.IsRoot(id) {
			return failure("delete node", tree.ErrRootDeletion), nil
		}
		size, err := doc.Subtree(id)
		if err != nil {
			return failure("delete node", err), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf(
			"Not deleted: [%s] and its descendants are %d node(s). Call again with confirm=true to delete.", id, size)), nil
	}

	var removed int
	doc, err := t.lib.Update(name, func(doc *tree.Document) error {
		n, err := doc.Delete(id)
		removed = n
		return err
	})
	if err != nil {
		return failure("delete node", err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted %d node(s) from %q; %d remain.", removed, doc.Name, doc.Len())), nil
}
