package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/logging"
	"github.com/JakeFAU/movierank/internal/metrics"
	"github.com/JakeFAU/movierank/internal/model"
)

// ErrNoGenres is returned for a movie without genres; it cannot fan out.
var ErrNoGenres = errors.New("movie has no genres")

const (
	insertMovieRankSQL = `INSERT INTO MovieRank (MovieName, Rank) VALUES (?, ?)`
	insertCountrySQL   = `INSERT INTO Countries (EnglishName, Region, Subregion, Population) VALUES (?, ?, ?, ?)`
	insertGenreSQL     = `INSERT INTO Genres (Genre) VALUES (?)`
	insertMovieSQL     = `INSERT INTO Movies (MovieId, Year, Rating, CountryId, Genre, URL) VALUES (?, ?, ?, ?, ?, ?)`
	selectCountryIDSQL = `SELECT Id FROM Countries WHERE EnglishName = ? ORDER BY Id LIMIT 1`
	selectRankIDSQL    = `SELECT Id FROM MovieRank WHERE MovieName = ? ORDER BY Id LIMIT 1`
)

// Loader writes scraped records into the database file at path.
type Loader struct {
	path    string
	aliases CountryAliases
	logger  *zap.Logger
}

// NewLoader builds a Loader. A nil aliases map disables the fallback.
func NewLoader(path string, aliases CountryAliases, logger *zap.Logger) (*Loader, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if aliases == nil {
		aliases = CountryAliases{}
	}
	return &Loader{path: path, aliases: aliases, logger: logging.OrNop(logger)}, nil
}

// Path returns the database file location.
func (l *Loader) Path() string {
	return l.path
}

// withTx opens the database, runs fn in one transaction and closes the
// database again.
func (l *Loader) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	db, err := openDB(ctx, writeDSN(l.path))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sqlite db: %w", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			l.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadMovieRanks inserts one MovieRank row per chart entry.
func (l *Loader) LoadMovieRanks(ctx context.Context, entries []model.ChartEntry) (int, error) {
	n := 0
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertMovieRankSQL)
		if err != nil {
			return fmt.Errorf("prepare movie rank insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Name, e.Rank); err != nil {
				return fmt.Errorf("insert movie rank %q: %w", e.Name, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.ObserveRowsLoaded(TableMovieRank, n)
	l.logger.Info("Movie ranks loaded", zap.Int("rows", n))
	return n, nil
}

// LoadCountries inserts the country reference rows in feed order.
func (l *Loader) LoadCountries(ctx context.Context, countries []model.CountryRef) (int, error) {
	n := 0
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertCountrySQL)
		if err != nil {
			return fmt.Errorf("prepare country insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range countries {
			if _, err := stmt.ExecContext(ctx, c.Name, c.Region, c.Subregion, c.Population); err != nil {
				return fmt.Errorf("insert country %q: %w", c.Name, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.ObserveRowsLoaded(TableCountries, n)
	l.logger.Info("Countries loaded", zap.Int("rows", n))
	return n, nil
}

// LoadGenres fills the genre lookup table.
func (l *Loader) LoadGenres(ctx context.Context, genres []string) (int, error) {
	n := 0
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertGenreSQL)
		if err != nil {
			return fmt.Errorf("prepare genre insert: %w", err)
		}
		defer stmt.Close()
		for _, g := range genres {
			if _, err := stmt.ExecContext(ctx, g); err != nil {
				return fmt.Errorf("insert genre %q: %w", g, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.ObserveRowsLoaded(TableGenres, n)
	l.logger.Info("Genres loaded", zap.Int("rows", n))
	return n, nil
}

// LoadMovies inserts one Movies row per (movie, genre). MovieRank and
// Countries must already be loaded: references are resolved by name against
// whatever rows exist at call time, and a miss is stored as NULL.
func (l *Loader) LoadMovies(ctx context.Context, movies []model.MovieDetail) (int, error) {
	n := 0
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		resolver, err := newResolver(ctx, tx, l.aliases)
		if err != nil {
			return err
		}
		defer resolver.close()

		insert, err := tx.PrepareContext(ctx, insertMovieSQL)
		if err != nil {
			return fmt.Errorf("prepare movie insert: %w", err)
		}
		defer insert.Close()

		for _, m := range movies {
			if len(m.Genres) == 0 {
				return fmt.Errorf("load movie %q: %w", m.Name, ErrNoGenres)
			}
			countryID, err := resolver.countryID(ctx, m.Country)
			if err != nil {
				return err
			}
			rankID, err := resolver.rankID(ctx, m.Name)
			if err != nil {
				return err
			}
			if !countryID.Valid {
				metrics.ObserveUnresolvedReference("country")
				l.logger.Debug("Country unresolved", zap.String("movie", m.Name), zap.String("country", m.Country))
			}
			if !rankID.Valid {
				metrics.ObserveUnresolvedReference("rank")
				l.logger.Debug("Rank unresolved", zap.String("movie", m.Name))
			}
			for _, genre := range m.Genres {
				if _, err := insert.ExecContext(ctx, rankID, m.Year, m.Rating, countryID, genre, m.URL); err != nil {
					return fmt.Errorf("insert movie %q genre %q: %w", m.Name, genre, err)
				}
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.ObserveRowsLoaded(TableMovies, n)
	l.logger.Info("Movies loaded", zap.Int("movies", len(movies)), zap.Int("rows", n))
	return n, nil
}

type resolver struct {
	aliases     CountryAliases
	countryStmt *sql.Stmt
	rankStmt    *sql.Stmt
}

func newResolver(ctx context.Context, tx *sql.Tx, aliases CountryAliases) (*resolver, error) {
	countryStmt, err := tx.PrepareContext(ctx, selectCountryIDSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare country lookup: %w", err)
	}
	rankStmt, err := tx.PrepareContext(ctx, selectRankIDSQL)
	if err != nil {
		_ = countryStmt.Close()
		return nil, fmt.Errorf("prepare rank lookup: %w", err)
	}
	return &resolver{aliases: aliases, countryStmt: countryStmt, rankStmt: rankStmt}, nil
}

func (r *resolver) close() {
	_ = r.countryStmt.Close()
	_ = r.rankStmt.Close()
}

// countryID resolves by exact EnglishName, then by alias, else NULL.
func (r *resolver) countryID(ctx context.Context, name string) (sql.NullInt64, error) {
	id, err := lookupID(ctx, r.countryStmt, name)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("resolve country %q: %w", name, err)
	}
	if id.Valid {
		return id, nil
	}
	if aliased, ok := r.aliases.Lookup(name); ok {
		return sql.NullInt64{Int64: aliased, Valid: true}, nil
	}
	return sql.NullInt64{}, nil
}

func (r *resolver) rankID(ctx context.Context, movieName string) (sql.NullInt64, error) {
	id, err := lookupID(ctx, r.rankStmt, movieName)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("resolve rank %q: %w", movieName, err)
	}
	return id, nil
}

func lookupID(ctx context.Context, stmt *sql.Stmt, key string) (sql.NullInt64, error) {
	var id int64
	err := stmt.QueryRowContext(ctx, key).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sql.NullInt64{}, nil
	case err != nil:
		return sql.NullInt64{}, err
	default:
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
}
