package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Table names.
const (
	TableGenres    = "Genres"
	TableMovieRank = "MovieRank"
	TableCountries = "Countries"
	TableMovies    = "Movies"
)

var dropStatements = []string{
	`DROP TABLE IF EXISTS "Genres"`,
	`DROP TABLE IF EXISTS "MovieRank"`,
	`DROP TABLE IF EXISTS "Countries"`,
	`DROP TABLE IF EXISTS "Movies"`,
}

// MovieId and CountryId are nullable: an unresolved reference is stored as NULL.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS "Genres" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"Genre" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "MovieRank" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"MovieName" TEXT NOT NULL,
		"Rank" INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Countries" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"EnglishName" TEXT NOT NULL,
		"Region" TEXT NOT NULL,
		"Subregion" TEXT NOT NULL,
		"Population" INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Movies" (
		"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"MovieId" INTEGER,
		"Year" INTEGER NOT NULL,
		"Rating" REAL NOT NULL,
		"CountryId" INTEGER,
		"Genre" TEXT NOT NULL,
		"URL" TEXT NOT NULL
	)`,
}

// CreateSchema drops and recreates all four tables. History is not kept;
// every run starts from empty tables.
func (l *Loader) CreateSchema(ctx context.Context) error {
	return l.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range dropStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
		}
		for _, stmt := range createStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
		l.logger.Info("Schema rebuilt", zap.String("path", l.path))
		return nil
	})
}
