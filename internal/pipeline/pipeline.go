// Package pipeline runs one scrape: rebuild the schema, load the chart and
// the reference tables, then every movie detail page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/config"
	"github.com/JakeFAU/movierank/internal/extract"
	"github.com/JakeFAU/movierank/internal/logging"
	"github.com/JakeFAU/movierank/internal/metrics"
	"github.com/JakeFAU/movierank/internal/model"
	"github.com/JakeFAU/movierank/internal/store"
)

// Fetcher returns the body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Loader persists scraped records. *store.Loader implements it.
type Loader interface {
	CreateSchema(ctx context.Context) error
	LoadMovieRanks(ctx context.Context, entries []model.ChartEntry) (int, error)
	LoadCountries(ctx context.Context, countries []model.CountryRef) (int, error)
	LoadGenres(ctx context.Context, genres []string) (int, error)
	LoadMovies(ctx context.Context, movies []model.MovieDetail) (int, error)
	StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time) error
	CompleteRun(ctx context.Context, id uuid.UUID, finishedAt time.Time, status store.RunStatus, movieRows int, errMsg *string) error
}

// Summary reports what a run loaded.
type Summary struct {
	RunID     uuid.UUID     `json:"run_id"`
	Ranks     int           `json:"ranks"`
	Countries int           `json:"countries"`
	Genres    int           `json:"genres"`
	Movies    int           `json:"movies"`
	MovieRows int           `json:"movie_rows"`
	Duration  time.Duration `json:"duration"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline wires the fetcher, the extractors and the loader together.
type Pipeline struct {
	fetcher Fetcher
	loader  Loader
	sources config.SourcesConfig
	logger  *zap.Logger
	now     func() time.Time
}

// New builds a Pipeline.
func New(f Fetcher, l Loader, sources config.SourcesConfig, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if f == nil {
		return nil, errors.New("pipeline: fetcher is required")
	}
	if l == nil {
		return nil, errors.New("pipeline: loader is required")
	}
	p := &Pipeline{
		fetcher: f,
		loader:  l,
		sources: sources,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetMaxMovies caps the number of detail pages loaded; 0 loads the whole chart.
func (p *Pipeline) SetMaxMovies(n int) {
	p.sources.MaxMovies = max(n, 0)
}

// Run executes one scrape. The first fetch or parse error aborts the run;
// tables already loaded stay as they are until the next run rebuilds them.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	start := p.now()
	summary := Summary{RunID: runID}
	logger := p.logger.With(zap.String("run_id", runID.String()))

	if err := p.loader.StartRun(ctx, runID, start); err != nil {
		metrics.ObservePipelineRun(string(store.RunError))
		return summary, fmt.Errorf("record run start: %w", err)
	}
	logger.Info("Pipeline started", zap.String("top_chart_url", p.sources.TopChartURL))

	runErr := p.run(ctx, logger, &summary)
	summary.Duration = p.now().Sub(start)

	status := store.RunSuccess
	var errMsg *string
	if runErr != nil {
		status = store.RunError
		msg := runErr.Error()
		errMsg = &msg
	}
	// The run record is written even when ctx was cancelled.
	if err := p.loader.CompleteRun(context.WithoutCancel(ctx), runID, p.now(), status, summary.MovieRows, errMsg); err != nil {
		logger.Warn("Failed to record run completion", zap.Error(err))
	}
	metrics.ObservePipelineRun(string(status))

	if runErr != nil {
		logger.Error("Pipeline failed", zap.Error(runErr), zap.Duration("duration", summary.Duration))
		return summary, runErr
	}
	logger.Info("Pipeline finished",
		zap.Int("ranks", summary.Ranks),
		zap.Int("countries", summary.Countries),
		zap.Int("genres", summary.Genres),
		zap.Int("movies", summary.Movies),
		zap.Int("movie_rows", summary.MovieRows),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, summary *Summary) error {
	if err := p.loader.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	chart, err := p.fetchChart(ctx)
	if err != nil {
		return err
	}
	if summary.Ranks, err = p.loader.LoadMovieRanks(ctx, chart); err != nil {
		return fmt.Errorf("load movie ranks: %w", err)
	}

	countries, err := p.fetchCountries(ctx)
	if err != nil {
		return err
	}
	if summary.Countries, err = p.loader.LoadCountries(ctx, countries); err != nil {
		return fmt.Errorf("load countries: %w", err)
	}

	if p.sources.LoadGenres {
		genres, err := p.fetchGenres(ctx)
		if err != nil {
			return err
		}
		if summary.Genres, err = p.loader.LoadGenres(ctx, genres); err != nil {
			return fmt.Errorf("load genres: %w", err)
		}
	} else {
		logger.Info("Genre glossary skipped")
	}

	// Ranks and countries are loaded above, so LoadMovies can resolve both.
	if limit := p.sources.MaxMovies; limit > 0 && len(chart) > limit {
		chart = chart[:limit]
	}
	details := make([]model.MovieDetail, 0, len(chart))
	for i, entry := range chart {
		if err := ctx.Err(); err != nil {
			return err
		}
		detail, err := p.fetchDetail(ctx, entry.URL)
		if err != nil {
			return err
		}
		logger.Debug("Movie parsed",
			zap.Int("index", i),
			zap.String("name", detail.Name),
			zap.Int("genres", len(detail.Genres)),
		)
		details = append(details, detail)
	}
	summary.Movies = len(details)
	if summary.MovieRows, err = p.loader.LoadMovies(ctx, details); err != nil {
		return fmt.Errorf("load movies: %w", err)
	}
	return nil
}

func (p *Pipeline) fetchChart(ctx context.Context) ([]model.ChartEntry, error) {
	url := p.sources.TopChartURL
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	entries, err := extract.ParseTopChart(body, p.sources.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return entries, nil
}

func (p *Pipeline) fetchCountries(ctx context.Context) ([]model.CountryRef, error) {
	url := p.sources.CountriesURL
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	countries, err := extract.ParseCountries(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return countries, nil
}

func (p *Pipeline) fetchGenres(ctx context.Context) ([]string, error) {
	url := p.sources.GenresURL
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	genres, err := extract.ParseGenres(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return genres, nil
}

func (p *Pipeline) fetchDetail(ctx context.Context, url string) (model.MovieDetail, error) {
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.MovieDetail{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	detail, err := extract.ParseMovieDetail(body, url)
	if err != nil {
		return model.MovieDetail{}, fmt.Errorf("parse %s: %w", url, err)
	}
	return detail, nil
}
