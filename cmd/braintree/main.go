// braintree: hierarchical notes in the terminal.
//
// Trees of short text nodes are edited from an interactive menu, stored as
// JSON files and exported as outline documents. The same trees are exposed
// to AI clients through an MCP server.
//
// Usage:
//
//	braintree                  # Interactive menu
//	braintree serve            # Start MCP server (stdio transport)
//	braintree list             # List stored trees
//	braintree export <name>    # Export a tree as .docx or .html
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/HendryAvila/braintree/internal/config"
	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	plain      bool

	cfg    *config.Config
	logger *zap.Logger
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "braintree",
		Short: "Hierarchical notes in your terminal",
		Long: `braintree keeps ideas as trees of short text nodes.

Run without arguments for the interactive menu: create a tree, add, edit
and delete nodes, then save it or export it as a Word (.docx, via pandoc)
or HTML outline. Trees live as JSON files under the data directory
(default ~/.braintree/trees); every save keeps the previous version as
<name>.json.bak.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (default ~/.braintree/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&a.plain, "plain", false, "Disable styled output")

	cmd.AddCommand(
		serveCmd(a),
		listCmd(a),
		showCmd(a),
		exportCmd(a),
		searchCmd(a),
		rmCmd(a),
		versionCmd(),
	)
	return cmd
}
