package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"closetpicks/internal/reconcile"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check dataset integrity without modifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			ds, err := st.Load()
			if err != nil {
				return err
			}
			report := reconcile.Validate(ds)
			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printValidation(cmd.OutOrStdout(), report)
			}
			if !report.OK() {
				return fmt.Errorf("validation found %d issues", len(report.Issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printValidation(out io.Writer, report *reconcile.ValidationReport) {
	c := report.Counts
	rows := [][]string{
		{"Catalog entries", itoa(c.Catalog)},
		{"  synthetic", itoa(c.Synthetic)},
		{"  enriched", itoa(c.Enriched)},
		{"Guests", itoa(c.Guests)},
		{"  multi-visit", itoa(c.MultiVisit)},
		{"Raw picks", itoa(c.RawPicks)},
		{"Picks", itoa(c.Picks)},
		{"  aggregates", itoa(c.Aggregates)},
		{"  with quote", itoa(c.WithQuote)},
		{"  with timestamp", itoa(c.WithTimestamp)},
		{"  displayed", itoa(c.DisplayedPicks)},
	}
	for _, tier := range c.SortedConfidence() {
		rows = append(rows, []string{"  confidence " + tier, itoa(c.Confidence[tier])})
	}
	fmt.Fprintln(out, renderTable([]string{"Records", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if report.OK() {
		fmt.Fprintln(out, "No integrity issues")
		return
	}
	issueRows := make([][]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issueRows = append(issueRows, []string{issue.Type, issue.Key, issue.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Issue", "Key", "Detail"}, issueRows, nil))
}
