package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"closetpicks/internal/config"
	"closetpicks/internal/dataset"
	"closetpicks/internal/enrich"
	"closetpicks/internal/ledger"
	"closetpicks/internal/logging"
	"closetpicks/internal/reconcile"
	"closetpicks/internal/services"
	"closetpicks/internal/services/llm"
	"closetpicks/internal/services/tmdb"
	"closetpicks/internal/store"
)

type enrichFlags struct {
	workers  int
	metadata bool
	extract  bool
	force    bool
	asJSON   bool
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var flags enrichFlags

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fetch film metadata and extract pick excerpts",
		Long: "Run the metadata and excerpt extraction passes. Without --metadata or\n" +
			"--extract, every pass with configured credentials runs. Completed work is\n" +
			"checkpointed, so an interrupted run resumes where it stopped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd, ctx, flags)
		},
	}
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent shards (default from config)")
	cmd.Flags().BoolVar(&flags.metadata, "metadata", false, "Run the metadata pass")
	cmd.Flags().BoolVar(&flags.extract, "extract", false, "Run the excerpt extraction passes")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Ignore the checkpoint and re-process everything")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the pass report as JSON")
	return cmd
}

func runEnrich(cmd *cobra.Command, ctx *commandContext, flags enrichFlags) (err error) {
	cfg, logger, st, err := ctx.openStore()
	if err != nil {
		return err
	}
	session, err := beginRun(cmd.Context(), cfg, logger, ledger.KindEnrich, false)
	if err != nil {
		return err
	}
	var report *enrich.Report
	defer func() {
		err = session.finish(report, err)
	}()

	deps, err := enrichDependencies(cfg, session.logger, flags)
	if err != nil {
		return err
	}
	deps.Checkpoint = st.Checkpoints()
	deps.Metrics = session.recorder
	deps.Logger = session.logger

	workers := cfg.Enrich.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}
	enricher, err := enrich.New(deps, enrich.Options{
		Workers:       workers,
		BatchSize:     cfg.Enrich.BatchSize,
		MaxSegments:   cfg.Enrich.MaxSegments,
		MaxQuoteChars: cfg.Enrich.MaxQuoteChars,
		Force:         flags.force,
	})
	if err != nil {
		return err
	}

	ds, err := st.Load()
	if err != nil {
		return err
	}
	report, runErr := enricher.Run(session.ctx, ds)
	session.observeDataset(ds)

	// Checkpointed keys are skipped next time, so their results must reach
	// disk even when the run stopped early.
	if err := saveEnriched(st, session, ds); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}

	if flags.asJSON {
		return writeJSON(cmd, report)
	}
	printEnrichReport(cmd.OutOrStdout(), report)
	return nil
}

func saveEnriched(st *store.Store, session *runSession, ds *dataset.Dataset) error {
	diffs, err := reconcile.DiffStore(st, ds)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		return nil
	}
	if err := st.Backup(session.backupDir()); err != nil {
		return err
	}
	written, err := st.Save(ds)
	if err != nil {
		return err
	}
	session.logger.Info("dataset written", logging.Int("documents", len(written)))
	return nil
}

// enrichDependencies builds the collaborators selected by flags. A pass
// requested explicitly without credentials is a configuration error; an
// implicit one is skipped with a warning.
func enrichDependencies(cfg *config.Config, logger *slog.Logger, flags enrichFlags) (enrich.Dependencies, error) {
	var deps enrich.Dependencies
	all := !flags.metadata && !flags.extract

	if flags.metadata || all {
		switch {
		case cfg.MetadataEnabled():
			client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
				tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond),
				tmdb.WithTimeout(time.Duration(cfg.TMDB.TimeoutSeconds)*time.Second),
			)
			if err != nil {
				return deps, err
			}
			deps.Metadata = enrich.NewTMDBSource(client, cfg.Enrich.MetadataYearTolerance, logger)
		case flags.metadata:
			return deps, services.Wrap(services.ErrConfiguration, "enrich", enrich.PassMetadata,
				"tmdb.api_key is not set (or export TMDB_API_KEY)", nil)
		default:
			logger.Info("metadata pass skipped", logging.Args(logging.DecisionAttrs("enrich_pass", "skipped", "tmdb credentials missing")...)...)
		}
	}

	if flags.extract || all {
		switch {
		case cfg.ExtractionEnabled():
			deps.Extractor = llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			}, llm.WithRateLimit(cfg.LLM.RequestsPerMinute))
			deps.Transcripts = enrich.NewFileTranscripts(cfg.Paths.TranscriptsDir)
		case flags.extract:
			return deps, services.Wrap(services.ErrConfiguration, "enrich", enrich.PassExtraction,
				"llm.api_key is not set (or export OPENROUTER_API_KEY)", nil)
		default:
			logger.Info("extraction pass skipped", logging.Args(logging.DecisionAttrs("enrich_pass", "skipped", "llm credentials missing")...)...)
		}
	}

	if deps.Metadata == nil && deps.Extractor == nil {
		return deps, services.Wrap(services.ErrConfiguration, "enrich", "setup",
			"no collaborator configured; set tmdb.api_key or llm.api_key", nil)
	}
	return deps, nil
}

func printEnrichReport(out io.Writer, report *enrich.Report) {
	headers := []string{"Pass", "Considered", "Enriched", "No data", "Skipped", "Excerpts", "Upgraded"}
	row := func(name string, r enrich.PassReport) []string {
		return []string{name, itoa(r.Considered), itoa(r.Enriched), itoa(r.NoEnrichment), itoa(r.Skipped), itoa(r.Excerpts), itoa(r.Upgraded)}
	}
	rows := [][]string{
		row(enrich.PassMetadata, report.Metadata),
		row(enrich.PassExtraction, report.Extraction),
		row(enrich.PassVisits, report.VisitsSecond),
	}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
}
