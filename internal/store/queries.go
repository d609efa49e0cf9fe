package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/movierank/internal/model"
)

// ErrInvalidQuery is returned for a sort column or direction outside the
// supported set.
var ErrInvalidQuery = errors.New("invalid report query")

// TopLimit caps the rows of a top-N report.
const TopLimit = 20

// Only these fragments are ever spliced into report SQL.
var (
	sortColumns = map[model.SortColumn]string{
		model.SortByRank: "MovieRank.Rank",
		model.SortByYear: "Movies.Year",
	}
	sortDirections = map[model.SortDirection]string{
		model.SortAsc:  "ASC",
		model.SortDesc: "DESC",
	}
)

// Reader serves read-only reports from a database built by the Loader.
type Reader struct {
	path string
	db   *sql.DB
}

// OpenReader opens the database read-only. The file is not touched until
// the first query, so a server may start before the first scrape.
func OpenReader(path string) (*Reader, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, readDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	return &Reader{path: path, db: db}, nil
}

// Close releases the underlying handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Ping reports whether the database file can be opened.
func (r *Reader) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", r.path, err)
	}
	return nil
}

func buildTopSQL(q model.TopQuery) (string, []any, error) {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		return "", nil, fmt.Errorf("%w: sort column %q", ErrInvalidQuery, q.SortBy)
	}
	dir := model.SortAsc
	if q.Direction != "" {
		dir = q.Direction
	}
	order, ok := sortDirections[dir]
	if !ok {
		return "", nil, fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, q.Direction)
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT MovieRank.MovieName, ")
	b.WriteString(col)
	b.WriteString(` FROM Movies
		LEFT JOIN Countries ON Movies.CountryId = Countries.Id
		LEFT JOIN MovieRank ON Movies.MovieId = MovieRank.Id
		WHERE MovieRank.MovieName IS NOT NULL`)
	var args []any
	if q.Filtered() {
		b.WriteString(" AND Countries.Region = ?")
		args = append(args, strings.TrimSpace(q.Region))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(col)
	b.WriteString(" ")
	b.WriteString(order)
	b.WriteString(", MovieRank.MovieName ASC LIMIT ?")
	args = append(args, TopLimit)
	return b.String(), args, nil
}

// TopMovies returns up to TopLimit (name, value) pairs where value is the
// rank or the release year.
func (r *Reader) TopMovies(ctx context.Context, q model.TopQuery) ([]model.ChartPoint, error) {
	query, args, err := buildTopSQL(q)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top movies: %w", err)
	}
	defer rows.Close()

	points := []model.ChartPoint{}
	for rows.Next() {
		var (
			name  string
			value sql.NullInt64
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan top movie: %w", err)
		}
		points = append(points, model.ChartPoint{Name: name, Value: value.Int64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top movies: %w", err)
	}
	return points, nil
}

// RankedMovies lists every ranked movie that has at least one Movies row.
func (r *Reader) RankedMovies(ctx context.Context) ([]model.RankedMovie, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT MovieRank.MovieName, MovieRank.Rank, Movies.URL
		FROM Movies
		JOIN MovieRank ON Movies.MovieId = MovieRank.Id
		ORDER BY MovieRank.Rank ASC, MovieRank.MovieName ASC`)
	if err != nil {
		return nil, fmt.Errorf("ranked movies: %w", err)
	}
	defer rows.Close()

	movies := []model.RankedMovie{}
	for rows.Next() {
		var m model.RankedMovie
		if err := rows.Scan(&m.Name, &m.Rank, &m.URL); err != nil {
			return nil, fmt.Errorf("scan ranked movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked movies: %w", err)
	}
	return movies, nil
}

// Regions lists the distinct non-empty regions of the Countries table.
func (r *Reader) Regions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT Region FROM Countries WHERE Region <> '' ORDER BY Region`)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	defer rows.Close()

	regions := []string{}
	for rows.Next() {
		var region string
		if err := rows.Scan(&region); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		regions = append(regions, region)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate regions: %w", err)
	}
	return regions, nil
}

// Counts reports the number of rows in each data table.
func (r *Reader) Counts(ctx context.Context) (model.TableCounts, error) {
	var counts model.TableCounts
	targets := []struct {
		table string
		dst   *int
	}{
		{TableGenres, &counts.Genres},
		{TableMovieRank, &counts.MovieRank},
		{TableCountries, &counts.Countries},
		{TableMovies, &counts.Movies},
	}
	for _, t := range targets {
		// Table names come from the constants above, never from input.
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+t.table+`"`).Scan(t.dst); err != nil {
			return model.TableCounts{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return counts, nil
}

func (r *Reader) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return n > 0, nil
}
