package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want SortColumn
	}{
		{"Rank", SortByRank},
		{" rank ", SortByRank},
		{"Year", SortByYear},
		{"YEAR", SortByYear},
		{"", SortByYear},
	}
	for _, tc := range tests {
		got, err := ParseSortColumn(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"Population", "Rank; DROP TABLE Movies"} {
		_, err := ParseSortColumn(bad)
		require.Error(t, err, bad)
	}
}

func TestParseSortDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want SortDirection
	}{
		{"asc", SortAsc},
		{"", SortAsc},
		{"DESC", SortDesc},
		{" desc ", SortDesc},
	}
	for _, tc := range tests {
		got, err := ParseSortDirection(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	_, err := ParseSortDirection("desc, (SELECT 1)")
	require.Error(t, err)
}

func TestTopQueryFiltered(t *testing.T) {
	t.Parallel()

	assert.False(t, TopQuery{}.Filtered())
	assert.False(t, TopQuery{Region: AllRegions}.Filtered())
	assert.False(t, TopQuery{Region: "  "}.Filtered())
	assert.True(t, TopQuery{Region: "Europe"}.Filtered())
}
