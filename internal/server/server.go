// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete store, index and
// exporter and injects them into the tools that depend on them. No business
// logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/HendryAvila/braintree/internal/config"
	"github.com/HendryAvila/braintree/internal/export"
	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/HendryAvila/braintree/internal/prompts"
	"github.com/HendryAvila/braintree/internal/resources"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/HendryAvila/braintree/internal/treetools"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tree tool, prompt and resource
// registered.
//
// The returned cleanup function closes the search index and must be called
// on shutdown (typically via defer). It is always non-nil and safe to call
// even if the index failed to open.
func New(cfg *config.Config, logger *zap.Logger) (*server.MCPServer, func(), error) {
	logger = logging.OrNop(logger)

	exporter, err := export.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("configuring export: %w", err)
	}

	st := store.NewFileStore(cfg.DataDir, logger)

	// --- Search index ---
	//
	// Search is an independent subsystem: if it fails to open, the other
	// tools keep working and tree_search reports itself unavailable.

	cleanup := noop
	var ix treetools.Indexer
	idx, idxErr := index.Open(cfg.DataDir, logger)
	if idxErr != nil {
		logger.Warn("search index disabled", zap.Error(idxErr))
	} else {
		ix = idx
		cleanup = func() {
			if err := idx.Close(); err != nil {
				logger.Warn("closing search index", zap.Error(err))
			}
		}
		if n, err := idx.Rebuild(st); err != nil {
			logger.Warn("rebuilding search index", zap.Error(err))
		} else {
			logger.Debug("search index rebuilt", zap.Int("documents", n))
		}
	}

	s := server.NewMCPServer(
		"braintree",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTreeTools(s, treetools.NewLibrary(st, ix, logger), st, exporter)

	// --- Register prompts ---

	brainstormPrompt := prompts.NewBrainstormPrompt()
	s.AddPrompt(brainstormPrompt.Definition(), brainstormPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st)
	s.AddResource(resourceHandler.IndexResource(), resourceHandler.HandleIndex)
	s.AddResourceTemplate(resourceHandler.TreeTemplate(), resourceHandler.HandleTree)

	return s, cleanup, nil
}

// noop is the default cleanup when there is nothing to close.
func noop() {}

// registerTreeTools registers the tree MCP tools with the server.
func registerTreeTools(s *server.MCPServer, lib *treetools.Library, st store.Store, ex *export.Exporter) {
	// --- Read ---
	listTool := treetools.NewListTool(st)
	s.AddTool(listTool.Definition(), listTool.Handle)

	showTool := treetools.NewShowTool(lib)
	s.AddTool(showTool.Definition(), showTool.Handle)

	outlineTool := treetools.NewOutlineTool(lib)
	s.AddTool(outlineTool.Definition(), outlineTool.Handle)

	// --- Write ---
	createTool := treetools.NewCreateTool(lib)
	s.AddTool(createTool.Definition(), createTool.Handle)

	addTool := treetools.NewAddNodeTool(lib)
	s.AddTool(addTool.Definition(), addTool.Handle)

	editTool := treetools.NewEditNodeTool(lib)
	s.AddTool(editTool.Definition(), editTool.Handle)

	deleteTool := treetools.NewDeleteNodeTool(lib)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	// --- Search & export ---
	searchTool := treetools.NewSearchTool(lib)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	exportTool := treetools.NewExportTool(lib, ex)
	s.AddTool(exportTool.Definition(), exportTool.Handle)
}

// serverInstructions tells the client how the tools fit together.
func serverInstructions() string {
	return `braintree stores hierarchical notes as trees of short text nodes.

Every node has a 4-digit id, unique within its tree; the root can also be
addressed as "root". Typical flow:

1. tree_list to see what exists, tree_create to start a new tree.
2. tree_show to see node ids, then tree_add_node / tree_edit_node.
3. tree_delete_node removes a whole branch. Call it first without confirm
   to learn how many nodes would go, then with confirm=true.
4. tree_search finds nodes across all trees; tree_export writes a document.

Every change is saved immediately and the previous version is kept as a
.bak file next to the tree.`
}
