package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"closetpicks/internal/matcher"
)

type matchOutput struct {
	Query  string `json:"query"`
	Method string `json:"method"`
	Score  int    `json:"score,omitempty"`
	FilmID string `json:"film_id"`
	Title  string `json:"title,omitempty"`
	Year   *int   `json:"year,omitempty"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		year       int
		url        string
		structured bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "match <title>",
		Short: "Resolve a film reference against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, st, err := ctx.openStore()
			if err != nil {
				return err
			}
			ds, err := st.Load()
			if err != nil {
				return err
			}
			ref := matcher.Reference{
				Title:      strings.Join(args, " "),
				URL:        strings.TrimSpace(url),
				Structured: structured,
			}
			if year > 0 {
				ref.Year = &year
			}
			result := matcher.New(ds.Catalog, matcherOptions(cfg)).Match(ref)

			output := matchOutput{Query: ref.Title, Method: result.Method, Score: result.Score, FilmID: result.FilmID}
			if result.Matched() {
				output.FilmID = result.Entry.FilmID
				output.Title = result.Entry.Title
				output.Year = result.Entry.Year
			}
			if asJSON {
				return writeJSON(cmd, output)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !result.Matched() {
				fmt.Fprintln(out, renderStatusLine("Match", statusWarn, "no catalog entry", colorize))
				fmt.Fprintln(out, renderStatusLine("Provisional id", statusInfo, output.FilmID, colorize))
				return nil
			}
			method := output.Method
			if matcher.IsFuzzy(method) {
				method = fmt.Sprintf("%s (score %d)", method, output.Score)
			}
			yearText := "unknown"
			if output.Year != nil {
				yearText = itoa(*output.Year)
			}
			fmt.Fprintln(out, renderStatusLine("Match", statusOK, output.FilmID, colorize))
			fmt.Fprintln(out, renderStatusLine("Title", statusInfo, output.Title, colorize))
			fmt.Fprintln(out, renderStatusLine("Year", statusInfo, yearText, colorize))
			fmt.Fprintln(out, renderStatusLine("Method", statusInfo, method, colorize))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Release year of the referenced film")
	cmd.Flags().StringVar(&url, "url", "", "Criterion page URL of the referenced film")
	cmd.Flags().BoolVar(&structured, "structured", false, "Apply the strict fuzzy threshold used for structured sources")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
