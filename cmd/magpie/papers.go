package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/magpie/internal/store"
	"github.com/pdiddy/magpie/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Browse the paper database",
	Long: `Papers reads the database written by ingest: list recent papers, show
one paper with its summaries, search by substring, or export everything.`,
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently fetched papers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(st *store.Store) error {
			papers, err := st.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), nonNil(papers))
			}
			return writeTable(cmd.OutOrStdout(), papers)
		})
	},
}

var papersShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one paper with its summaries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id < 1 {
			return fmt.Errorf("invalid paper id %q", args[0])
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(st *store.Store) error {
			p, err := st.Get(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no paper with id %d", id)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			writeDetail(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

var papersSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find papers whose title or summaries contain QUERY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(st *store.Store) error {
			papers, err := st.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), nonNil(papers))
			}
			if len(papers) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No papers match %q.\n", args[0])
				return nil
			}
			return writeTable(cmd.OutOrStdout(), papers)
		})
	},
}

var papersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all papers as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		return withStore(func(st *store.Store) error {
			switch format {
			case "yaml", "yml":
				return st.ExportYAML(cmd.Context(), cmd.OutOrStdout())
			case "json":
				return st.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown export format %q (want yaml or json)", format)
			}
		})
	},
}

func init() {
	papersListCmd.Flags().Int("limit", 0, "number of papers to list (default 10)")
	papersListCmd.Flags().Bool("json", false, "output as JSON")
	papersShowCmd.Flags().Bool("json", false, "output as JSON")
	papersSearchCmd.Flags().Bool("json", false, "output as JSON")
	papersExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	papersCmd.AddCommand(papersListCmd, papersShowCmd, papersSearchCmd, papersExportCmd)
	rootCmd.AddCommand(papersCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(*store.Store) error) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, papers []types.Paper) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPUBLISHED\tTITLE")
	for _, p := range papers {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.PublishedDate, p.Title)
	}
	return tw.Flush()
}

func writeDetail(w io.Writer, p types.Paper) {
	fmt.Fprintf(w, "%s\n\n", p.Title)
	fmt.Fprintf(w, "ID:        %d\n", p.ID)
	fmt.Fprintf(w, "Published: %s\n", p.PublishedDate)
	fmt.Fprintf(w, "Authors:   %s\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(w, "PDF:       %s\n", p.PDFURL)
	if !p.FetchedAt.IsZero() {
		fmt.Fprintf(w, "Fetched:   %s\n", p.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(w, "\nAbstract\n\n%s\n", p.Summary)
	fmt.Fprintf(w, "\nBrief summary\n\n%s\n", p.AISummary)
	fmt.Fprintf(w, "\nDetailed summary\n\n%s\n", p.DetailedSummary)
}

func nonNil(papers []types.Paper) []types.Paper {
	if papers == nil {
		return []types.Paper{}
	}
	return papers
}
