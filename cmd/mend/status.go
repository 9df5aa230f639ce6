package main

import (
	"encoding/json"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/mend/internal/platform"
	"github.com/aretw0/mend/pkg/backup"
)

// statusView is printed by the status command. The token is never shown.
type statusView struct {
	Adapter   string `json:"adapter"`
	ProjectID string `json:"project_id,omitempty"`
	Dataset   string `json:"dataset,omitempty"`
	Path      string `json:"path,omitempty"`
	BackupDir string `json:"backup_dir"`
	HasToken  bool   `json:"has_token"`
	Component string `json:"component,omitempty"`
	State     any    `json:"state,omitempty"`
	Backups   int    `json:"backups"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the effective configuration and store state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			view := newStatusView(cfg)
			if c, ok := store.(introspection.Component); ok {
				view.Component = c.ComponentType()
			}
			if i, ok := store.(introspection.Introspectable); ok {
				view.State = i.State()
			}
			if files, err := backup.New(nil, cfg.BackupDir, backup.WithDataset(cfg.Label())).List(); err == nil {
				view.Backups = len(files)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}

func newStatusView(cfg platform.Config) statusView {
	return statusView{
		Adapter:   cfg.Adapter,
		ProjectID: cfg.ProjectID,
		Dataset:   cfg.Dataset,
		Path:      cfg.Path,
		BackupDir: cfg.BackupDir,
		HasToken:  cfg.Token != "",
	}
}
