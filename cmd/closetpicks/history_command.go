package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"closetpicks/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer led.Close()

			runs, err := led.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				duration := ""
				if run.FinishedAt != nil {
					duration = run.Duration().Round(time.Millisecond).String()
				}
				rows = append(rows, []string{
					shortID(run.ID),
					string(run.Kind),
					string(run.Status),
					yesNo(run.DryRun),
					run.StartedAt.Local().Format(time.DateTime),
					duration,
					run.Error,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Kind", "Status", "Dry run", "Started", "Duration", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func newAliasesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "aliases <slug>",
		Short: "Show the guest slugs merged into a slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := strings.TrimSpace(args[0])
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer led.Close()

			merges, err := led.Aliases(cmd.Context(), slug)
			if err != nil {
				return err
			}
			mergedInto, err := led.MergedInto(cmd.Context(), slug)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, struct {
					Slug       string         `json:"slug"`
					MergedInto string         `json:"merged_into,omitempty"`
					Aliases    []ledger.Merge `json:"aliases"`
				}{slug, mergedInto, merges})
			}

			out := cmd.OutOrStdout()
			if mergedInto != "" {
				fmt.Fprintf(out, "%s was merged into %s\n", slug, mergedInto)
			}
			if len(merges) == 0 {
				fmt.Fprintf(out, "No aliases recorded for %s\n", slug)
				return nil
			}
			rows := make([][]string, 0, len(merges))
			for _, m := range merges {
				rows = append(rows, []string{m.Secondary, m.Primary, m.Directive, itoa(m.PicksMoved), itoa(m.RawMoved), shortID(m.RunID)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Alias", "Merged into", "Directive", "Picks", "Raw", "Run"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print aliases as JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
