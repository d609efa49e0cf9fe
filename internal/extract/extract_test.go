package extract_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movierank/internal/extract"
	"github.com/JakeFAU/movierank/internal/model"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	// #nosec G304 -- fixtures live in the package testdata directory.
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func requirePageError(t *testing.T, err error, page extract.Page, cause error) {
	t.Helper()
	require.Error(t, err)
	var extractErr *extract.Error
	require.True(t, errors.As(err, &extractErr), "expected *extract.Error, got %T: %v", err, err)
	assert.Equal(t, page, extractErr.Page)
	assert.ErrorIs(t, err, cause)
}

func TestRankFromCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"1. The Shawshank Redemption", "1"},
		{"25. Movie Name", "25"},
		{"250. Wild Strawberries", "250"},
		{"\n        7.\n        Se7en (1995)", "7"},
		{"9.", "9"},
		// Four-digit ranks do not fit the three-character window.
		{"1000. Too Far", "100"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, extract.RankFromCell(tc.text), tc.text)
	}
}

func TestParseTopChart(t *testing.T) {
	t.Parallel()

	entries, err := extract.ParseTopChart(readFixture(t, "top_chart.html"), "https://www.imdb.com")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, model.ChartEntry{
		Name: "The Shawshank Redemption",
		Rank: 1,
		URL:  "https://www.imdb.com/title/tt0111161/?pf_rd_m=A2FGELUUNOQJNL&pf_rd_t=15506",
	}, entries[0])
	assert.Equal(t, "The Godfather", entries[1].Name)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 25, entries[2].Rank)
	assert.Equal(t, "https://www.imdb.com/title/tt1375666/", entries[2].URL)
	assert.Equal(t, 250, entries[3].Rank)
	assert.Equal(t, "https://www.imdb.com/title/tt0050986/", entries[3].URL)
}

func TestParseTopChartDuplicateNames(t *testing.T) {
	t.Parallel()

	body := `<table>
<tr><td class="titleColumn">1. <a href="/title/tt1/">Solaris</a></td></tr>
<tr><td class="titleColumn">2. <a href="/title/tt2/">Stalker</a></td></tr>
<tr><td class="titleColumn">3. <a href="/title/tt3/">Solaris</a></td></tr>
</table>`
	entries, err := extract.ParseTopChart(body, "https://www.imdb.com/")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ChartEntry{Name: "Solaris", Rank: 3, URL: "https://www.imdb.com/title/tt3/"}, entries[0])
	assert.Equal(t, "Stalker", entries[1].Name)
}

func TestParseTopChartErrors(t *testing.T) {
	t.Parallel()

	t.Run("NoCells", func(t *testing.T) {
		_, err := extract.ParseTopChart("<html><body><table></table></body></html>", "https://www.imdb.com")
		requirePageError(t, err, extract.PageTopChart, extract.ErrElementNotFound)
	})
	t.Run("CellWithoutAnchor", func(t *testing.T) {
		_, err := extract.ParseTopChart(`<table><tr><td class="titleColumn">1. Nothing</td></tr></table>`, "https://www.imdb.com")
		requirePageError(t, err, extract.PageTopChart, extract.ErrElementNotFound)
	})
	t.Run("NonNumericRank", func(t *testing.T) {
		_, err := extract.ParseTopChart(`<table><tr><td class="titleColumn">N/A <a href="/t/">X</a></td></tr></table>`, "https://www.imdb.com")
		requirePageError(t, err, extract.PageTopChart, extract.ErrMalformed)
	})
	t.Run("RelativeBase", func(t *testing.T) {
		_, err := extract.ParseTopChart(readFixture(t, "top_chart.html"), "/")
		requirePageError(t, err, extract.PageTopChart, extract.ErrMalformed)
	})
}

func TestSplitHeading(t *testing.T) {
	t.Parallel()

	name, year, err := extract.SplitHeading("Inception (2010)")
	require.NoError(t, err)
	assert.Equal(t, "Inception", name)
	assert.Equal(t, 2010, year)

	name, year, err = extract.SplitHeading("  Léon: The Professional (1994)   ")
	require.NoError(t, err)
	assert.Equal(t, "Léon: The Professional", name)
	assert.Equal(t, 1994, year)

	for _, bad := range []string{"No Year Here", "(1999)", "Short (99)", "Odd (TV Series)"} {
		_, _, err := extract.SplitHeading(bad)
		assert.ErrorIs(t, err, extract.ErrMalformed, bad)
	}
}

func TestCountryFromRelease(t *testing.T) {
	t.Parallel()

	country, err := extract.CountryFromRelease("16 July 2010 (USA)")
	require.NoError(t, err)
	assert.Equal(t, "USA", country)

	country, err = extract.CountryFromRelease("2 June 2003 (South Korea)\n")
	require.NoError(t, err)
	assert.Equal(t, "South Korea", country)

	_, err = extract.CountryFromRelease("16 July 2010")
	assert.ErrorIs(t, err, extract.ErrMalformed)
	_, err = extract.CountryFromRelease("Soon ()")
	assert.ErrorIs(t, err, extract.ErrMalformed)
}

func TestParseMovieDetail(t *testing.T) {
	t.Parallel()

	const src = "https://www.imdb.com/title/tt1375666/"
	detail, err := extract.ParseMovieDetail(readFixture(t, "detail_inception.html"), src)
	require.NoError(t, err)
	assert.Equal(t, model.MovieDetail{
		Name:    "Inception",
		Year:    2010,
		Rating:  "8.8",
		Genres:  []string{"Action", "Adventure", "Sci-Fi"},
		Country: "USA",
		URL:     src,
	}, detail)
}

func TestParseMovieDetailErrors(t *testing.T) {
	t.Parallel()

	const page = `<div class="title_wrapper"><h1>%s</h1><div class="subtext">%s</div></div>%s`
	rating := `<span itemprop="ratingValue">8.1</span>`
	tests := []struct {
		name  string
		body  string
		cause error
	}{
		{"MissingWrapper", `<h1>Inception (2010)</h1>`, extract.ErrElementNotFound},
		{"MissingHeading", `<div class="title_wrapper"></div>`, extract.ErrElementNotFound},
		{"HeadingWithoutYear", fmt.Sprintf(page, "Inception", `<a>Action</a><a>1 May (UK)</a>`, rating), extract.ErrMalformed},
		{"MissingRating", fmt.Sprintf(page, "Inception (2010)", `<a>Action</a><a>1 May (UK)</a>`, ""), extract.ErrElementNotFound},
		{"BadRating", fmt.Sprintf(page, "Inception (2010)", `<a>Action</a><a>1 May (UK)</a>`, `<span itemprop="ratingValue">n/a</span>`), extract.ErrMalformed},
		{"OnlyReleaseAnchor", fmt.Sprintf(page, "Inception (2010)", `<a>1 May (UK)</a>`, rating), extract.ErrElementNotFound},
		{"ReleaseWithoutCountry", fmt.Sprintf(page, "Inception (2010)", `<a>Action</a><a>1 May 2010</a>`, rating), extract.ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extract.ParseMovieDetail(tc.body, "https://www.imdb.com/title/tt1/")
			requirePageError(t, err, extract.PageMovieDetail, tc.cause)
		})
	}
}

func TestParseGenres(t *testing.T) {
	t.Parallel()

	genres, err := extract.ParseGenres(readFixture(t, "genres.html"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Adventure", "Animation", "Biography", "Comedy"}, genres)
}

func TestParseGenresErrors(t *testing.T) {
	t.Parallel()

	_, err := extract.ParseGenres(`<div id="other"><p>a</p><p><a>Action</a></p></div>`)
	requirePageError(t, err, extract.PageGenres, extract.ErrElementNotFound)

	_, err = extract.ParseGenres(`<div id="article_content"><p><a>Action</a></p></div>`)
	requirePageError(t, err, extract.PageGenres, extract.ErrElementNotFound)

	_, err = extract.ParseGenres(`<div id="article_content"><p>intro</p><p>no links</p></div>`)
	requirePageError(t, err, extract.PageGenres, extract.ErrElementNotFound)
}

func TestParseCountries(t *testing.T) {
	t.Parallel()

	countries, err := extract.ParseCountries(readFixture(t, "countries.json"))
	require.NoError(t, err)
	require.Len(t, countries, 4)
	assert.Equal(t, model.CountryRef{
		Name:       "Japan",
		Region:     "Asia",
		Subregion:  "Eastern Asia",
		Population: 126960000,
	}, countries[1])
	assert.Equal(t, "", countries[3].Subregion)

	empty, err := extract.ParseCountries(`[]`)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseCountriesFailsWholeFeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		cause error
	}{
		{"MissingPopulation", `[{"name":"A","region":"r","subregion":"s","population":1},{"name":"B","region":"r","subregion":"s"}]`, extract.ErrMissingField},
		{"NullRegion", `[{"name":"A","region":null,"subregion":"s","population":1}]`, extract.ErrMissingField},
		{"MissingName", `[{"region":"r","subregion":"s","population":1}]`, extract.ErrMissingField},
		{"MissingSubregion", `[{"name":"A","region":"r","population":1}]`, extract.ErrMissingField},
		{"NotAnArray", `{"name":"A"}`, extract.ErrMalformed},
		{"Null", `null`, extract.ErrMalformed},
		{"Garbage", `<html>rate limited</html>`, extract.ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			countries, err := extract.ParseCountries(tc.body)
			requirePageError(t, err, extract.PageCountries, tc.cause)
			assert.Nil(t, countries)
		})
	}
}
