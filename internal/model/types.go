// Package model defines the records shared by the fetch, extract, load and report layers.
package model

import (
	"fmt"
	"strings"
)

// ChartEntry is one row of the top chart listing.
type ChartEntry struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	URL  string `json:"url"`
}

// MovieDetail is the record parsed from a single movie detail page.
// One detail fans out into one Movies row per genre.
type MovieDetail struct {
	Name    string   `json:"name"`
	Year    int      `json:"year"`
	Rating  string   `json:"rating"`
	Genres  []string `json:"genres"`
	Country string   `json:"country"`
	URL     string   `json:"url"`
}

// CountryRef is one element of the country reference feed.
type CountryRef struct {
	Name       string `json:"name"`
	Region     string `json:"region"`
	Subregion  string `json:"subregion"`
	Population int64  `json:"population"`
}

// SortColumn selects the value reported next to each movie name.
type SortColumn string

// Supported report columns.
const (
	SortByRank SortColumn = "Rank"
	SortByYear SortColumn = "Year"
)

// SortDirection orders report rows.
type SortDirection string

// Supported sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// AllRegions disables the region filter.
const AllRegions = "All"

// TopQuery describes a top-N report request.
type TopQuery struct {
	SortBy    SortColumn    `json:"sort"`
	Direction SortDirection `json:"dir"`
	Region    string        `json:"region"`
}

// ParseSortColumn maps user input onto a SortColumn. Empty input selects
// year, the web form's default.
func ParseSortColumn(raw string) (SortColumn, error) {
	switch {
	case strings.TrimSpace(raw) == "":
		return SortByYear, nil
	case strings.EqualFold(strings.TrimSpace(raw), string(SortByRank)):
		return SortByRank, nil
	case strings.EqualFold(strings.TrimSpace(raw), string(SortByYear)):
		return SortByYear, nil
	default:
		return "", fmt.Errorf("unknown sort column %q", raw)
	}
}

// ParseSortDirection maps user input onto a SortDirection.
func ParseSortDirection(raw string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(SortAsc):
		return SortAsc, nil
	case string(SortDesc):
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

// Filtered reports whether the query restricts rows to one region.
func (q TopQuery) Filtered() bool {
	r := strings.TrimSpace(q.Region)
	return r != "" && r != AllRegions
}

// ChartPoint is a single (name, value) pair from a top-N report.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// RankedMovie is one row of the full ranked listing.
type RankedMovie struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	URL  string `json:"url"`
}

// TableCounts reports how many rows each table holds.
type TableCounts struct {
	Genres    int `json:"genres"`
	MovieRank int `json:"movie_rank"`
	Countries int `json:"countries"`
	Movies    int `json:"movies"`
}
