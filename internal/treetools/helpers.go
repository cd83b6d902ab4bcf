package treetools

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/braintree/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// failure converts an error into a tool-result error with a hint for the
// common "wrong name" case.
func failure(action string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s failed: %v", action, err)
	if errors.Is(err, store.ErrNotFound) {
		msg += " (use tree_list to see available trees)"
	}
	return mcp.NewToolResultError(msg)
}
