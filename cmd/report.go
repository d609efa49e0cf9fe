package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/model"
	"github.com/JakeFAU/movierank/internal/store"
)

func openReader(cmd *cobra.Command) (*store.Reader, *zap.Logger, error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	reader, err := appInstance.OpenReader()
	if err != nil {
		return nil, nil, err
	}
	return reader, appInstance.GetLogger(), nil
}

func closeReader(reader *store.Reader, logger *zap.Logger) {
	if err := reader.Close(); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}
}

func newTopCmd() *cobra.Command {
	var sortBy, dir, region string
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the top 20 movies by rank or release year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			column, err := model.ParseSortColumn(sortBy)
			if err != nil {
				return err
			}
			direction, err := model.ParseSortDirection(dir)
			if err != nil {
				return err
			}
			query := model.TopQuery{
				SortBy:    column,
				Direction: direction,
				Region:    region,
			}
			reader, logger, err := openReader(cmd)
			if err != nil {
				return err
			}
			defer closeReader(reader, logger)

			points, err := reader.TopMovies(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("top movies: %w", err)
			}
			if len(points) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No movies loaded.")
				return nil
			}
			rows := make([][]string, 0, len(points))
			for i, p := range points {
				rows = append(rows, []string{strconv.Itoa(i + 1), p.Name, strconv.FormatInt(p.Value, 10)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Movie", string(query.SortBy)},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(model.SortByRank), "report column: Rank or Year")
	cmd.Flags().StringVar(&dir, "dir", "asc", "sort direction: asc or desc")
	cmd.Flags().StringVar(&region, "region", model.AllRegions, "country region filter")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent scrape runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be > 0")
			}
			reader, logger, err := openReader(cmd)
			if err != nil {
				return err
			}
			defer closeReader(reader, logger)

			runs, err := reader.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				took, failure := "", ""
				if run.FinishedAt != nil {
					took = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				if run.ErrorMessage != nil {
					failure = *run.ErrorMessage
				}
				rows = append(rows, []string{
					run.ID.String(),
					run.StartedAt.Local().Format(time.DateTime),
					string(run.Status),
					took,
					strconv.Itoa(run.MovieRows),
					failure,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Status", "Took", "Rows", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}
