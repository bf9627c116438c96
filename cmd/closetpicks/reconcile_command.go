package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"closetpicks/internal/ledger"
	"closetpicks/internal/logging"
	"closetpicks/internal/reconcile"
)

// maxDiffLines caps the per-document lines printed by --dry-run.
const maxDiffLines = 200

type reconcileSummary struct {
	Records   map[string]int `json:"records"`
	Changes   map[string]int `json:"changes"`
	Merges    int            `json:"merges"`
	Issues    map[string]int `json:"issues,omitempty"`
	Written   []string       `json:"written,omitempty"`
	Documents []string       `json:"documents_changed,omitempty"`
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match, merge, and correct the dataset",
		Long: "Run every reconciliation pass over the dataset and write the result.\n" +
			"With --dry-run the documents are left untouched and a line diff is printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, ctx, dryRun, asJSON)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")
	return cmd
}

func runReconcile(cmd *cobra.Command, ctx *commandContext, dryRun, asJSON bool) (err error) {
	cfg, logger, st, err := ctx.openStore()
	if err != nil {
		return err
	}
	table, err := ctx.directiveTable(cfg, logger)
	if err != nil {
		return err
	}

	session, err := beginRun(cmd.Context(), cfg, logger, ledger.KindReconcile, dryRun)
	if err != nil {
		return err
	}
	summary := &reconcileSummary{}
	defer func() {
		err = session.finish(summary, err)
	}()

	ds, err := st.Load()
	if err != nil {
		return err
	}
	result, err := reconcile.Run(session.ctx, ds, table, reconcile.Options{Matching: matcherOptions(cfg)}, session.logger)
	if err != nil {
		return err
	}

	summary.Records = recordCounts(ds)
	summary.Changes = result.Changes()
	summary.Merges = len(result.Merges())
	summary.Issues = result.Validation.ByType()
	session.observeDataset(ds)
	session.recorder.SetChanges(summary.Changes)
	session.recorder.SetIssues(summary.Issues)

	diffs, err := reconcile.DiffStore(st, ds)
	if err != nil {
		return err
	}
	for _, d := range diffs {
		summary.Documents = append(summary.Documents, d.Name)
	}

	if !dryRun {
		if len(diffs) > 0 {
			if err := st.Backup(session.backupDir()); err != nil {
				return err
			}
		}
		written, err := st.Save(ds)
		summary.Written = written
		if err != nil {
			return err
		}
		if err := session.ledger.RecordMerges(session.ctx, session.id, result.Merges()); err != nil {
			return err
		}
		session.logger.Info("dataset written", logging.Int("documents", len(written)))
	}

	if asJSON {
		return writeJSON(cmd, summary)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if dryRun {
		printDiffs(out, diffs, colorize)
	}
	printReconcileSummary(out, summary, dryRun, colorize)
	return nil
}

func printDiffs(out io.Writer, diffs []reconcile.DocumentDiff, colorize bool) {
	if len(diffs) == 0 {
		fmt.Fprintln(out, "No document changes")
		return
	}
	for _, d := range diffs {
		printLines(out, renderSectionHeader(fmt.Sprintf("%s (+%d -%d)", d.Name, d.Added, d.Removed), colorize))
		for i, line := range d.Lines {
			if i == maxDiffLines {
				fmt.Fprintf(out, "... %d more lines\n", len(d.Lines)-maxDiffLines)
				break
			}
			fmt.Fprintln(out, diffLineColor(line, colorize))
		}
		fmt.Fprintln(out)
	}
}

func printReconcileSummary(out io.Writer, summary *reconcileSummary, dryRun, colorize bool) {
	order := []string{
		reconcile.PassMatch, reconcile.PassIdentity, reconcile.PassCollision,
		reconcile.PassBoxSet, reconcile.PassVisits, reconcile.PassFinalize,
	}
	fmt.Fprintln(out, renderTable([]string{"Pass", "Changes"}, countRows(summary.Changes, order), []columnAlignment{alignLeft, alignRight}))

	issues := 0
	for _, n := range summary.Issues {
		issues += n
	}
	kind, message := statusOK, "none"
	if issues > 0 {
		kind, message = statusWarn, fmt.Sprintf("%d (run `closetpicks validate` for details)", issues)
	}
	fmt.Fprintln(out, renderStatusLine("Integrity issues", kind, message, colorize))
	fmt.Fprintln(out, renderStatusLine("Merges", statusInfo, itoa(summary.Merges), colorize))
	switch {
	case dryRun:
		fmt.Fprintln(out, renderStatusLine("Documents", statusInfo, fmt.Sprintf("%d would change (dry run)", len(summary.Documents)), colorize))
	case len(summary.Written) == 0:
		fmt.Fprintln(out, renderStatusLine("Documents", statusOK, "unchanged", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Documents", statusOK, fmt.Sprintf("wrote %d", len(summary.Written)), colorize))
	}
}
