package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

func newInspectCmd(a *app) *cobra.Command {
	var faq bool

	cmd := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Print a document as it would look after repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			doc, ok, err := core.NewService(store).Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("document %q not found", args[0])
			}

			fixers := []repair.Fixer{repair.Keys()}
			if faq {
				fixers = append([]repair.Fixer{repair.FAQ{}}, fixers...)
			}
			fixed, changed := repair.New(store, repair.WithFixers(fixers...)).Check(doc)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(fixed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "needs repair: %t\n", changed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&faq, "faq", false, "Also apply the FAQ fixer")
	return cmd
}
