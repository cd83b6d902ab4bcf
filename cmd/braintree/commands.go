package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/HendryAvila/braintree/internal/config"
	"github.com/HendryAvila/braintree/internal/export"
	"github.com/HendryAvila/braintree/internal/index"
	"github.com/HendryAvila/braintree/internal/render"
	"github.com/HendryAvila/braintree/internal/server"
	"github.com/HendryAvila/braintree/internal/session"
	"github.com/HendryAvila/braintree/internal/store"
	"github.com/dustin/go-humanize"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInteractive starts the menu session. The export converter is checked
// up front so a missing pandoc is reported before any editing happens.
func (a *app) runInteractive(ctx context.Context) error {
	exporter, err := export.NewFromConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}
	if err := export.CheckConverter(exporter.Converter()); err != nil {
		return err
	}

	st := store.NewFileStore(a.cfg.DataDir, a.logger)

	opts := session.Options{
		Store:    st,
		Exporter: exporter,
		Logger:   a.logger,
		In:       os.Stdin,
		Out:      os.Stdout,
		Plain:    a.plain,
	}

	if ix, err := openIndex(a.cfg, st, a.logger, true); err != nil {
		a.logger.Warn("search disabled", zap.Error(err))
	} else {
		defer ix.Close()
		opts.Index = ix
	}

	if a.cfg.Watch {
		if err := os.MkdirAll(a.cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		w, err := session.NewWatcher(a.cfg.DataDir, a.logger)
		if err != nil {
			a.logger.Warn("file watching disabled", zap.Error(err))
		} else {
			defer w.Close()
			opts.Watcher = w
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	opts.OnInterrupt = stop

	return session.New(opts).Run(ctx)
}

// openIndex opens the search index, optionally re-indexing every stored
// tree first.
func openIndex(cfg *config.Config, st *store.FileStore, logger *zap.Logger, rebuild bool) (*index.Index, error) {
	ix, err := index.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	if rebuild {
		if _, err := ix.Rebuild(st); err != nil {
			ix.Close()
			return nil, err
		}
	}
	return ix, nil
}

// nodeCounts returns node counts per tree from a freshly rebuilt index.
// Trees the index could not read (corrupt files) are absent; a missing
// index yields an empty map.
func (a *app) nodeCounts(st *store.FileStore) map[string]int {
	ix, err := openIndex(a.cfg, st, a.logger, true)
	if err != nil {
		a.logger.Warn("node counts unavailable", zap.Error(err))
		return nil
	}
	defer ix.Close()

	infos, err := ix.Documents()
	if err != nil {
		a.logger.Warn("node counts unavailable", zap.Error(err))
		return nil
	}
	counts := make(map[string]int, len(infos))
	for _, d := range infos {
		counts[d.Name] = d.NodeCount
	}
	return counts
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := server.New(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			a.logger.Info("serving MCP on stdio", zap.String("version", server.Version))
			return mcpserver.ServeStdio(s)
		},
	}
}

func listCmd(a *app) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.NewFileStore(a.cfg.DataDir, a.logger)
			entries, err := st.List(match)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No trees in %s\n", a.cfg.DataDir)
				return nil
			}
			counts := a.nodeCounts(st)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tNODES\tSIZE\tMODIFIED")
			for _, e := range entries {
				nodes := "-"
				if n, ok := counts[e.Name]; ok {
					nodes = strconv.Itoa(n)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, nodes, humanize.Bytes(uint64(e.Size)), humanize.Time(e.Modified))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&match, "match", "m", "", "Glob filter on tree names")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := store.NewFileStore(a.cfg.DataDir, a.logger).Load(args[0])
			if err != nil {
				return err
			}
			return render.Display(cmd.OutOrStdout(), doc, render.Options{Plain: plain})
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable styled output")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a tree as an outline document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if format != "" {
				cfg.ExportFormat = format
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			exporter, err := export.NewFromConfig(&cfg, a.logger)
			if err != nil {
				return err
			}
			if err := export.CheckConverter(exporter.Converter()); err != nil {
				return err
			}

			doc, err := store.NewFileStore(cfg.DataDir, a.logger).Load(args[0])
			if err != nil {
				return err
			}
			path, err := exporter.Export(cmd.Context(), doc, output)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file name (default: the tree name)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: docx or html (default from config)")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var (
		limit   int
		reindex bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across stored trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.NewFileStore(a.cfg.DataDir, a.logger)
			ix, err := openIndex(a.cfg, st, a.logger, reindex)
			if err != nil {
				return err
			}
			defer ix.Close()

			hits, err := ix.Search(strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%s [%s] %s\n", h.Document, h.NodeID, h.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", index.DefaultLimit, "Max results")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the index from the stored trees first")
	return cmd
}

func rmCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a stored tree and its backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.NewFileStore(a.cfg.DataDir, a.logger)
			name := args[0]
			if !st.Exists(name) {
				return fmt.Errorf("%w: %q", store.ErrNotFound, name)
			}
			if !yes {
				console := session.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := console.Confirm(cmd.Context(), fmt.Sprintf("Delete %s?", st.Path(name)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := st.Remove(name); err != nil {
				return err
			}

			if ix, err := index.Open(a.cfg.DataDir, a.logger); err == nil {
				if err := ix.Remove(name); err != nil {
					a.logger.Warn("removing from search index", zap.String("document", name), zap.Error(err))
				}
				ix.Close()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config needed to print a version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "braintree %s\n", server.Version)
		},
	}
}
