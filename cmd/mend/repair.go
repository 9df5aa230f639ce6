package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aretw0/mend/pkg/core"
	"github.com/aretw0/mend/pkg/repair"
)

func newFixKeysCmd(a *app) *cobra.Command {
	var (
		query      string
		ids        []string
		dryRun     bool
		randomKeys bool
	)

	cmd := &cobra.Command{
		Use:   "fix-keys",
		Short: "Give every object inside an array a unique _key",
		Example: `  mend fix-keys --query '*[_type == "page"]'
  mend fix-keys --id homepage --id about --dry-run
  mend fix-keys --adapter fs --path ./export --query 'type:page'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			keys := repair.Keys()
			if randomKeys {
				keys = repair.Keys(core.WithKeySource(core.RandomKeys(12)))
			}
			return runRepair(cmd, a, store, query, ids, dryRun, keys)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", core.QueryAll, "Documents to scan (GROQ for sanity, selector for fs/sqlite)")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "Repair only these document ids (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&randomKeys, "random-keys", false, "Generate random keys instead of key-<index>-<millis>")
	return cmd
}

func newFixFAQCmd(a *app) *cobra.Command {
	var (
		faq     repair.FAQ
		docType string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "fix-faq",
		Short: "Repair malformed FAQ entries, then their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, release, err := a.open()
			if err != nil {
				return err
			}
			defer release()

			query := core.QueryAll
			if docType != "" {
				query = core.TypeQuery(store, docType)
			}
			return runRepair(cmd, a, store, query, nil, dryRun, faq, repair.Keys())
		},
	}

	cmd.Flags().StringVar(&faq.Field, "field", repair.DefaultFAQField, "Field holding the FAQ list")
	cmd.Flags().StringVar(&faq.ItemType, "item-type", repair.DefaultFAQItemType, "_type given to FAQ entries")
	cmd.Flags().StringVar(&docType, "type", "", "Only scan documents of this _type")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func runRepair(cmd *cobra.Command, a *app, store core.Store, query string, ids []string, dryRun bool, fixers ...repair.Fixer) error {
	out := cmd.OutOrStdout()
	wf := repair.New(store,
		repair.WithFixers(fixers...),
		repair.WithDryRun(dryRun),
		repair.WithLogger(a.logger),
		repair.WithProgress(func(o repair.Outcome) {
			if o.Status != repair.StatusUnchanged {
				fmt.Fprintf(out, "%-9s %s\n", o.Status, o.ID)
			}
		}),
	)

	var (
		report repair.Report
		err    error
	)
	if len(ids) > 0 {
		report, err = wf.RunIDs(commandContext(cmd), ids...)
	} else {
		report, err = wf.Run(commandContext(cmd), query)
	}
	if err != nil {
		return err
	}
	printReport(out, report, dryRun)
	return nil
}

func printReport(w io.Writer, r repair.Report, dryRun bool) {
	mode := ""
	if dryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "scanned=%d changed=%d written=%d unchanged=%d missing=%d failed=%d%s\n",
		r.Scanned, r.Changed, r.Written, r.Unchanged, r.Missing, r.Failed(), mode)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.ID, f.Err)
	}
}
