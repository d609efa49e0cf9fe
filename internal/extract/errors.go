package extract

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by *Error.
var (
	ErrElementNotFound = errors.New("expected element not found")
	ErrMalformed       = errors.New("malformed content")
	ErrMissingField    = errors.New("missing required field")
)

// Page names the source page type an extractor handles.
type Page string

// Known page types.
const (
	PageTopChart    Page = "top-chart"
	PageMovieDetail Page = "movie-detail"
	PageGenres      Page = "genre-glossary"
	PageCountries   Page = "country-feed"
)

// Error reports which page failed to parse and why.
type Error struct {
	Page   Page
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.Page, e.Detail, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(page Page, cause error, format string, args ...any) error {
	return &Error{Page: page, Detail: fmt.Sprintf(format, args...), Err: cause}
}
