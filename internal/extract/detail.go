package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/movierank/internal/model"
)

const (
	titleWrapperSelector = "div.title_wrapper"
	ratingSelector       = `span[itemprop="ratingValue"]`
	subtextSelector      = "div.subtext"
)

// ParseMovieDetail reads a movie detail page. The subtext anchors are all
// genres except the last one, whose parenthetical names the release country.
func ParseMovieDetail(body, sourceURL string) (model.MovieDetail, error) {
	doc, err := parseHTML(PageMovieDetail, body)
	if err != nil {
		return model.MovieDetail{}, err
	}

	wrapper := doc.Find(titleWrapperSelector).First()
	if wrapper.Length() == 0 {
		return model.MovieDetail{}, fail(PageMovieDetail, ErrElementNotFound, "%s in %s", titleWrapperSelector, sourceURL)
	}
	heading := wrapper.Find("h1").First()
	if heading.Length() == 0 {
		return model.MovieDetail{}, fail(PageMovieDetail, ErrElementNotFound, "h1 in %s", sourceURL)
	}
	name, year, err := SplitHeading(heading.Text())
	if err != nil {
		return model.MovieDetail{}, fail(PageMovieDetail, err, "heading %q in %s", strings.TrimSpace(heading.Text()), sourceURL)
	}

	ratingNode := doc.Find(ratingSelector).First()
	if ratingNode.Length() == 0 {
		return model.MovieDetail{}, fail(PageMovieDetail, ErrElementNotFound, "rating in %s", sourceURL)
	}
	rating := strings.TrimSpace(ratingNode.Text())
	if _, err := strconv.ParseFloat(rating, 64); err != nil {
		return model.MovieDetail{}, fail(PageMovieDetail, ErrMalformed, "rating %q in %s", rating, sourceURL)
	}

	subtext := wrapper.Find(subtextSelector).First()
	if subtext.Length() == 0 {
		return model.MovieDetail{}, fail(PageMovieDetail, ErrElementNotFound, "%s in %s", subtextSelector, sourceURL)
	}
	genres, country, err := splitSubtext(subtext.Find("a"))
	if err != nil {
		return model.MovieDetail{}, fail(PageMovieDetail, err, "subtext in %s", sourceURL)
	}

	return model.MovieDetail{
		Name:    name,
		Year:    year,
		Rating:  rating,
		Genres:  genres,
		Country: country,
		URL:     sourceURL,
	}, nil
}

// SplitHeading splits "Name (YYYY)" on the first "(" into the trimmed name
// and the four characters that follow it.
func SplitHeading(text string) (string, int, error) {
	idx := strings.Index(text, "(")
	if idx < 0 {
		return "", 0, ErrMalformed
	}
	name := strings.TrimSpace(text[:idx])
	if name == "" {
		return "", 0, ErrMalformed
	}
	rest := text[idx+1:]
	if next := strings.Index(rest, "("); next >= 0 {
		rest = rest[:next]
	}
	if utf8.RuneCountInString(rest) < 4 {
		return "", 0, ErrMalformed
	}
	year, err := strconv.Atoi(string([]rune(rest)[:4]))
	if err != nil {
		return "", 0, ErrMalformed
	}
	return name, year, nil
}

// CountryFromRelease extracts "USA" from release anchor text such as
// "18 July 2008 (USA)".
func CountryFromRelease(text string) (string, error) {
	idx := strings.Index(text, "(")
	if idx < 0 {
		return "", ErrMalformed
	}
	rest := text[idx+1:]
	if next := strings.Index(rest, "("); next >= 0 {
		rest = rest[:next]
	}
	country := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ")"))
	if country == "" {
		return "", ErrMalformed
	}
	return country, nil
}

func splitSubtext(anchors *goquery.Selection) ([]string, string, error) {
	n := anchors.Length()
	if n < 2 {
		return nil, "", ErrElementNotFound
	}
	genres := make([]string, 0, n-1)
	anchors.Slice(0, n-1).Each(func(_ int, a *goquery.Selection) {
		genres = append(genres, strings.TrimSpace(a.Text()))
	})
	country, err := CountryFromRelease(strings.TrimSpace(anchors.Last().Text()))
	if err != nil {
		return nil, "", err
	}
	return genres, country, nil
}
