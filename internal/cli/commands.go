package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dshills/vecsync-mcp/internal/app"
	"github.com/dshills/vecsync-mcp/internal/mcp"
	"github.com/dshills/vecsync-mcp/internal/searcher"
	"github.com/dshills/vecsync-mcp/internal/storage"
	"github.com/dshills/vecsync-mcp/pkg/types"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync engine as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				srv := mcp.NewServer(a)
				errCh := make(chan error, 1)
				go func() { errCh <- srv.Serve(ctx) }()

				select {
				case <-ctx.Done():
					a.Logger.Info("mcp: shutting down")
					return nil
				case err := <-errCh:
					return err
				}
			})
		},
	}
}

func newSyncCommand(opts *options) *cobra.Command {
	var force, all bool
	cmd := &cobra.Command{
		Use:   "sync [collection]",
		Short: "Sync a collection, or every collection with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if all {
					if force {
						return errors.New("--force cannot be combined with --all")
					}
					statuses, err := a.Syncer.SyncAll(ctx)
					if err != nil {
						return err
					}
					rows := make([]statusRow, len(statuses))
					for i, st := range statuses {
						rows[i] = statusRow{status: st, display: st.State}
					}
					renderStatusTable(out, rows)
					return nil
				}

				run := a.Syncer.Sync
				if force {
					run = a.Syncer.ForceResync
				}
				st, err := run(ctx, args[0])
				if st != nil {
					renderStatusDetail(out, statusRow{status: st, display: st.State})
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete the collection's vectors and re-index every file")
	cmd.Flags().BoolVar(&all, "all", false, "sync every collection")
	return cmd
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [collection]",
		Short: "Show sync status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					st, err := a.Syncer.GetStatus(ctx, args[0])
					if err != nil {
						return err
					}
					renderStatusDetail(out, statusRow{status: st, display: a.Syncer.DisplayState(ctx, st)})
					return nil
				}

				statuses, err := a.Syncer.GetAllStatuses(ctx)
				if err != nil {
					return err
				}
				rows := make([]statusRow, len(statuses))
				for i, st := range statuses {
					rows[i] = statusRow{status: st, display: a.Syncer.DisplayState(ctx, st)}
				}
				renderStatusTable(out, rows)
				return nil
			})
		},
	}
}

func newPendingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pending <collection>",
		Short: "List files the next sync would add, modify or delete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				cs, err := a.Syncer.PendingChanges(ctx, args[0])
				if err != nil {
					return err
				}
				renderChanges(cmd.OutOrStdout(), args[0], cs)
				return nil
			})
		},
	}
}

func newSearchCommand(opts *options) *cobra.Command {
	var (
		collection string
		k          int
		threshold  float64
		raw        bool
		width      int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over synced chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				query := strings.Join(args, " ")
				resp, err := a.Searcher.Search(ctx, searcher.SearchRequest{
					Query:      query,
					Collection: collection,
					Limit:      k,
					MinScore:   threshold,
				})
				if err != nil {
					return err
				}
				return renderSearch(cmd.OutOrStdout(), query, resp, width, raw)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "restrict results to one collection")
	cmd.Flags().IntVar(&k, "k", searcher.DefaultLimit, "number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum cosine similarity (0 disables)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width")
	return cmd
}

func newDeleteVectorsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-vectors <collection>",
		Short: "Delete a collection's vectors and reset it to never_synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Syncer.DeleteVectors(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s vectors of %s deleted, state %s\n",
					successStyle.Render("✓"), args[0], st.State)
				return nil
			})
		},
	}
}

func newDeleteCollectionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-collection <collection>",
		Short: "Delete a collection's vectors, chunk records and status; source files stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Syncer.DeleteCollection(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s collection %s deleted\n", successStyle.Render("✓"), args[0])
				return nil
			})
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "watch <collection>",
		Short: "Start a sync and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				collection := args[0]
				start := a.Syncer.StartSync
				if force {
					start = a.Syncer.StartForceResync
				}
				if _, err := start(collection); err != nil {
					return err
				}

				m := newWatchModel(collection,
					func() (*types.SyncStatus, error) { return a.Syncer.GetStatus(ctx, collection) },
					func() bool { return a.Syncer.Cancel(collection) })
				p := tea.NewProgram(m,
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()))
				final, err := p.Run()
				if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
					return err
				}
				if wm, ok := final.(watchModel); ok && wm.err != nil {
					return wm.err
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "force resync")
	return cmd
}

func newPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the embedder and vector index are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Index.Ping(ctx); err != nil {
					return &types.IndexUnavailableError{Op: "ping", Err: err}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s index reachable\n", successStyle.Render("✓"), a.Config.Index.Backend)
				return nil
			})
		},
	}
}

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vecsync %s\n", opts.build.Version)
			fmt.Fprintf(out, "Build Time: %s\n", opts.build.BuildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
		},
	}
}
