// Package store persists scraped records into an embedded SQLite database
// and serves the read-only reports built on top of them.
//
// The Loader opens and closes the database once per call and is not safe to
// run from two processes against the same file: a second run can observe a
// schema that is half dropped and rebuilt.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// fileURI percent-encodes path so '#' and '?' stay part of the file name.
func fileURI(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath()
}

func writeDSN(path string) string {
	return fileURI(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)"
}

func readDSN(path string) string {
	return fileURI(path) + "?mode=ro&_pragma=busy_timeout(5000)"
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("database path is required")
	}
	return nil
}
