// Package prompts implements MCP prompt handlers for working with trees.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// arg returns a prompt argument or def when missing or empty.
func arg(req mcp.GetPromptRequest, key, def string) string {
	if v, ok := req.Params.Arguments[key]; ok && v != "" {
		return v
	}
	return def
}

// BrainstormPrompt handles the tree-brainstorm MCP prompt.
// It asks the AI to break a topic down into a new tree.
type BrainstormPrompt struct{}

// NewBrainstormPrompt creates a BrainstormPrompt.
func NewBrainstormPrompt() *BrainstormPrompt {
	return &BrainstormPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *BrainstormPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("tree-brainstorm",
		mcp.WithPromptDescription("Break a topic down into a new tree of ideas, two or three levels deep."),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What to brainstorm about"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Tree name (default: derived from the topic)"),
		),
	)
}

// Handle processes the tree-brainstorm prompt request.
func (p *BrainstormPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := arg(req, "topic", "")
	if topic == "" {
		return nil, fmt.Errorf("'topic' is required")
	}
	name := arg(req, "name", topic)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Brainstorm: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Help me think through %q as a tree of ideas.\n\n"+
						"1. Run `tree_create` with name=%q and the topic as the root content.\n"+
						"2. Add 3-6 main branches with `tree_add_node` (parent_id defaults to the root).\n"+
						"3. Under each branch add a few concrete sub-points, using the ids returned by the previous calls.\n"+
						"4. Finish with `tree_show` so I can see the result, and ask me which branch to expand next.\n\n"+
						"Keep each node to one short sentence.",
					topic, name,
				)),
			},
		},
	}, nil
}

// ReviewPrompt handles the tree-review MCP prompt.
// It asks the AI to read an existing tree and suggest improvements.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("tree-review",
		mcp.WithPromptDescription("Review an existing tree: find gaps, duplicates and misplaced nodes."),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Tree to review"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the tree-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := arg(req, "name", "")
	if name == "" {
		return nil, fmt.Errorf("'name' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review tree: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Review my tree %q.\n\n"+
						"1. Read it with `tree_outline` (or `tree_show` when you need node ids).\n"+
						"2. Point out branches that are thin, duplicated, or sit under the wrong parent.\n"+
						"3. Propose concrete edits as a list of tool calls, but do not run "+
						"`tree_edit_node` or `tree_delete_node` until I approve them.",
					name,
				)),
			},
		},
	}, nil
}
