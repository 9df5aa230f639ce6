package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aretw0/mend/internal/platform"
	"github.com/aretw0/mend/pkg/backup"
	"github.com/aretw0/mend/pkg/core"
)

func newBackupCmd(a *app) *cobra.Command {
	var (
		dir  string
		keep int
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore dataset snapshots",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Backup directory (default: backup_dir from config, or ./backups)")
	cmd.PersistentFlags().IntVar(&keep, "keep", 0, "Snapshots to keep after create (default 5)")

	archiver := func(store core.Store, cfg platform.Config) *backup.Archiver {
		if dir == "" {
			dir = cfg.BackupDir
		}
		if keep == 0 {
			keep = cfg.Keep
		}
		return backup.New(store, dir,
			backup.WithDataset(cfg.Label()),
			backup.WithKeep(keep),
			backup.WithLogger(a.logger),
		)
	}

	var (
		query string
		long  bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Write a snapshot of the documents matched by --query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			path, err := archiver(store, cfg).Create(commandContext(cmd), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	create.Flags().StringVarP(&query, "query", "q", core.QueryAll, "Documents to include")

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			files, err := archiver(nil, cfg).List()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, f := range files {
				if !long {
					fmt.Fprintln(w, f)
					continue
				}
				info, err := os.Stat(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", f, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
			}
			return nil
		},
	}
	list.Flags().BoolVarP(&long, "long", "l", false, "Show size and age")

	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Write every document of a snapshot back to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			arc := archiver(store, cfg)
			path := args[0]
			if _, err := os.Stat(path); os.IsNotExist(err) {
				path = filepath.Join(arc.Dir(), path)
			}
			n, err := arc.Restore(commandContext(cmd), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d documents from %s\n", n, path)
			return nil
		},
	}

	cmd.AddCommand(create, list, restore)
	return cmd
}
