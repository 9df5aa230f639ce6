package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	mendlc "github.com/aretw0/mend/pkg/adapters/lifecycle"
	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

func newWatchCmd(a *app) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repair keys of local documents as they change (fs adapter)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			w, ok := store.(core.Watchable)
			if !ok {
				return errors.New("the configured adapter does not support watching; use --adapter fs")
			}

			ctx := commandContext(cmd)
			events, err := w.Watch(ctx, pattern)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			wf := repair.New(store,
				repair.WithLogger(a.logger),
				repair.WithProgress(func(o repair.Outcome) {
					if o.Status == repair.StatusWritten || o.Status == repair.StatusFailed {
						fmt.Fprintf(out, "%-9s %s\n", o.Status, o.ID)
					}
				}),
			)

			src := mendlc.NewSource(events)
			if err := src.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("watching for changes", "pattern", pattern)

			// Our own writes come back as events; the second pass finds
			// nothing to change and writes nothing.
			for e := range src.Events() {
				ev, ok := e.(core.Event)
				if !ok {
					continue
				}
				if _, err := wf.RunIDs(ctx, ev.ID); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", core.QueryAll, "Glob over document ids")
	return cmd
}
