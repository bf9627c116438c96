package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"closetpicks/internal/config"
	"closetpicks/internal/ledger"
	"closetpicks/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dataset, collaborator, and last-run status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printLines(out, renderSectionHeader("Dataset", colorize))
			ds, err := st.Load()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Documents", statusError, err.Error(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Data dir", statusInfo, st.Dir(), colorize))
				fmt.Fprintln(out, renderStatusLine("Catalog entries", statusInfo, itoa(len(ds.Catalog)), colorize))
				fmt.Fprintln(out, renderStatusLine("Guests", statusInfo, itoa(len(ds.Guests)), colorize))
				fmt.Fprintln(out, renderStatusLine("Raw picks", statusInfo, itoa(len(ds.RawPicks)), colorize))
				fmt.Fprintln(out, renderStatusLine("Picks", statusInfo, itoa(len(ds.Picks)), colorize))
			}
			if cp, err := st.Checkpoints().Load(); err == nil {
				fmt.Fprintln(out, renderStatusLine("Checkpoint keys", statusInfo, itoa(len(cp)), colorize))
			}
			fmt.Fprintln(out)

			printLines(out, renderSectionHeader("Collaborators", colorize))
			printCollaborators(out, cfg, colorize)
			table, err := ctx.directiveTable(cfg, logger)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Directives", statusError, err.Error(), colorize))
			} else {
				source := "built-in"
				if cfg.Directives.Path != "" {
					source = cfg.Directives.Path
				}
				fmt.Fprintln(out, renderStatusLine("Directives", statusOK, fmt.Sprintf("%d (%s)", table.Len(), source), colorize))
			}
			fmt.Fprintln(out)

			printLines(out, renderSectionHeader("Runs", colorize))
			printLastRuns(cmd.Context(), out, cfg, colorize)
			return nil
		},
	}
}

func printCollaborators(out io.Writer, cfg *config.Config, colorize bool) {
	if cfg.MetadataEnabled() {
		fmt.Fprintln(out, renderStatusLine("TMDB", statusOK, cfg.TMDB.BaseURL, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("TMDB", statusWarn, "api key not configured", colorize))
	}
	if cfg.ExtractionEnabled() {
		fmt.Fprintln(out, renderStatusLine("LLM", statusOK, cfg.LLM.Model, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("LLM", statusWarn, "api key not configured", colorize))
	}
}

func printLastRuns(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) {
	led, err := ledger.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Ledger", statusError, err.Error(), colorize))
		return
	}
	defer led.Close()

	for _, kind := range []ledger.Kind{ledger.KindReconcile, ledger.KindEnrich} {
		label := "Last " + string(kind)
		run, err := led.LastRun(ctx, kind)
		switch {
		case err != nil:
			fmt.Fprintln(out, renderStatusLine(label, statusError, err.Error(), colorize))
		case run == nil:
			fmt.Fprintln(out, renderStatusLine(label, statusInfo, "never", colorize))
		default:
			fmt.Fprintln(out, renderStatusLine(label, runStatusKind(run.Status), describeRun(run), colorize))
		}
	}

	lock, err := store.AcquireRunLock(cfg.Paths.DataDir)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Run lock", statusWarn, "held by another run", colorize))
		return
	}
	_ = lock.Release()
	fmt.Fprintln(out, renderStatusLine("Run lock", statusOK, "free", colorize))
}

func runStatusKind(status ledger.Status) statusKind {
	switch status {
	case ledger.StatusSucceeded:
		return statusOK
	case ledger.StatusFailed:
		return statusError
	default:
		return statusWarn
	}
}

func describeRun(run *ledger.Run) string {
	text := fmt.Sprintf("%s %s", run.Status, run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		text += fmt.Sprintf(" (%s)", run.Duration().Round(time.Millisecond))
	}
	if run.DryRun {
		text += " dry run"
	}
	return text
}
