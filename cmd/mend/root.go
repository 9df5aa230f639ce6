package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/mend/internal/platform"
	"github.com/aretw0/mend/pkg/core"
)

// app holds the persistent flags shared by every command.
type app struct {
	configPath string
	verbose    bool
	flags      platform.Config
	logger     *slog.Logger
	prompter   platform.Prompter // asks for the token when no other source has one
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
// A nil prompter disables the interactive token prompt.
func newRootCmd(prompter platform.Prompter) *cobra.Command {
	a := &app{prompter: prompter}

	root := &cobra.Command{
		Use:   "mend",
		Short: "Repair structural defects in CMS documents",
		Long: `mend reads documents from a Sanity dataset (or a local export),
fixes structural defects such as array items without a _key and writes
back only the documents that changed.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			opts := &slog.HandlerOptions{
				Level: level,
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
			slog.SetDefault(a.logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to mend.yaml (default: nearest mend.yaml above the working directory)")
	pf.StringVar(&a.flags.Adapter, "adapter", "", "Storage adapter: sanity, fs or sqlite")
	pf.StringVar(&a.flags.Path, "path", "", "Directory (fs) or database file (sqlite)")
	pf.StringVar(&a.flags.ProjectID, "project", "", "Sanity project id")
	pf.StringVar(&a.flags.Dataset, "dataset", "", "Sanity dataset")
	pf.StringVar(&a.flags.Token, "token", "", "Sanity API token (prefer SANITY_API_TOKEN)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newFixKeysCmd(a),
		newFixFAQCmd(a),
		newBackupCmd(a),
		newWatchCmd(a),
		newInspectCmd(a),
		newStatusCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(platform.TerminalPrompter{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		fatal("mend", err)
	}
}

// config resolves the effective configuration.
func (a *app) config() (platform.Config, error) {
	path := a.configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = platform.FindConfig(wd)
		}
	}
	cfg, err := platform.Resolve(path, a.flags, nil)
	if err != nil {
		return cfg, err
	}
	if path != "" {
		a.logger.Debug("configuration loaded", "file", path, "adapter", cfg.Adapter)
	}
	return cfg, nil
}

// open builds the configured store. The returned func releases it.
func (a *app) open() (core.Store, platform.Config, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, cfg, nil, err
	}
	store, err := platform.Open(cfg, platform.WithLogger(a.logger), platform.WithPrompter(a.prompter))
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("failed to open %s store: %w", cfg.Adapter, err)
	}
	release := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("failed to close store", "error", err)
			}
		}
	}
	return store, cfg, release, nil
}

// commandContext returns the command's context, cancelled on interrupt
// when started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
