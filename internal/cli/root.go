// Package cli implements the vecsync command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dshills/vecsync-mcp/internal/app"
	"github.com/dshills/vecsync-mcp/internal/config"
)

// BuildInfo is stamped by the linker
type BuildInfo struct {
	Version   string
	BuildTime string
}

type options struct {
	configPath string
	logLevel   string
	build      BuildInfo

	// replaced in tests
	open func(cfg *config.Config, logger *slog.Logger) (*app.App, error)
}

// Execute runs the vecsync command and returns the process exit code
func Execute(build BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(build)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree
func NewRootCommand(build BuildInfo) *cobra.Command {
	return newRootCommand(&options{build: build, open: app.Open})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "vecsync",
		Short:         "Keep a vector index in step with collections of markdown files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $VECSYNC_CONFIG, ./vecsync.yaml or ~/.config/vecsync/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newStatusCommand(opts),
		newPendingCommand(opts),
		newSearchCommand(opts),
		newDeleteVectorsCommand(opts),
		newDeleteCollectionCommand(opts),
		newWatchCommand(opts),
		newPingCommand(opts),
		newVersionCommand(opts),
	)
	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// withApp opens the engine for the duration of fn. Logs go to stderr.
func (o *options) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	a, err := o.open(cfg, logger)
	if err != nil {
		return err
	}
	ferr := fn(cmd.Context(), a)
	cerr := a.Close()
	return errors.Join(ferr, cerr)
}
