package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScrapeCmd() *cobra.Command {
	var maxMovies int
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the chart and detail pages and rebuild the database",
		Long: `Rebuilds the SQLite database from scratch: the schema is dropped and
recreated, then the top chart, the country reference feed, the genre
glossary and every movie detail page are loaded in that order. Pages are
read through the response cache, so a warm cache.json makes the run
offline. The first fetch or parse error aborts the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-movies") && maxMovies < 0 {
				return fmt.Errorf("--max-movies must be >= 0")
			}
			scraper, err := appInstance.NewScraper()
			if err != nil {
				return err
			}
			logger := appInstance.GetLogger()
			defer func() {
				if cerr := scraper.Close(); cerr != nil {
					logger.Warn("Failed to flush response cache", zap.Error(cerr))
				}
			}()

			if cmd.Flags().Changed("max-movies") {
				scraper.Pipeline.SetMaxMovies(maxMovies)
			}
			summary, err := scraper.Pipeline.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d ranks, %d countries, %d genres, %d movies (%d rows) in %s\n",
				summary.RunID, summary.Ranks, summary.Countries, summary.Genres,
				summary.Movies, summary.MovieRows, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxMovies, "max-movies", 0, "load only the first N detail pages (0 = all)")
	return cmd
}
