package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/magpie/internal/extract"
	"github.com/pdiddy/magpie/internal/ingest"
	"github.com/pdiddy/magpie/internal/source"
	"github.com/pdiddy/magpie/internal/store"
	"github.com/pdiddy/magpie/internal/summarize"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch, summarize and store new papers",
	Long: `Ingest performs one run: it queries arXiv for the most recent papers
matching the configured query, skips papers already in the database, and for
each new paper downloads the PDF, generates a brief and a detailed summary
with the local model, and stores the record.

A paper whose PDF or summaries cannot be produced is still stored, with a
placeholder in the affected field.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.String("query", "", "arXiv search_query expression (default: agent papers in cs.AI/cs.CL)")
	f.Int("max-results", 0, "maximum candidates per run (default 6)")
	f.Duration("pdf-timeout", 0, "PDF download timeout (default 30s)")
	f.Int("max-chars", 0, "characters of full text sent for the detailed summary (default 8000)")
	f.String("model", "", "Ollama model (default llama3:8b)")
	f.String("ollama-url", "", "Ollama server URL (default http://localhost:11434)")
	f.String("metrics-file", "", "write run metrics to this file in Prometheus text format")

	bindFlag("source.query", f.Lookup("query"))
	bindFlag("source.max_results", f.Lookup("max-results"))
	bindFlag("extract.timeout", f.Lookup("pdf-timeout"))
	bindFlag("summarize.max_chars", f.Lookup("max-chars"))
	bindFlag("summarize.model", f.Lookup("model"))
	bindFlag("summarize.base_url", f.Lookup("ollama-url"))
	bindFlag("metrics_file", f.Lookup("metrics-file"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	backend, err := summarize.NewOllamaBackend(cfg.Summarize)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		logger.Error("could not open paper store", zap.String("path", cfg.Store.Path), zap.Error(err))
		return err
	}
	defer st.Close()

	var metrics *ingest.Metrics
	if cfg.MetricsFile != "" {
		metrics = ingest.NewMetrics()
	}

	p := &ingest.Pipeline{
		Source:     source.New(cfg.Source, nil, logger),
		Store:      st,
		Extractor:  extract.New(cfg.Extract, nil, logger),
		Summarizer: summarize.NewEngine(backend, cfg.Summarize, logger),
		Logger:     logger,
		Metrics:    metrics,
	}
	res := p.Run(cmd.Context())

	if metrics != nil {
		if err := metrics.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("could not write metrics", zap.Error(err))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d new, %d skipped, %d degraded, %d failed (run %s, %.1fs)\n",
		res.NewPapers, res.Skipped, res.Degraded, res.Failed, res.RunID, res.Duration.Seconds())
	if res.SourceErr != nil && res.Err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: candidate list incomplete: %v\n", res.SourceErr)
	}
	if res.Err != nil {
		return fmt.Errorf("ingestion run aborted: %w", res.Err)
	}
	return nil
}
