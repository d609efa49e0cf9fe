package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const articleSelector = "div#article_content"

// ParseGenres reads the genre glossary: the anchors of the second paragraph
// inside the article body, in page order.
func ParseGenres(body string) ([]string, error) {
	doc, err := parseHTML(PageGenres, body)
	if err != nil {
		return nil, err
	}
	article := doc.Find(articleSelector).First()
	if article.Length() == 0 {
		return nil, fail(PageGenres, ErrElementNotFound, "%s", articleSelector)
	}
	paragraphs := article.Find("p")
	if paragraphs.Length() < 2 {
		return nil, fail(PageGenres, ErrElementNotFound, "second paragraph of %s", articleSelector)
	}
	anchors := paragraphs.Eq(1).Find("a")
	if anchors.Length() == 0 {
		return nil, fail(PageGenres, ErrElementNotFound, "genre anchors")
	}
	genres := make([]string, 0, anchors.Length())
	anchors.Each(func(_ int, a *goquery.Selection) {
		genres = append(genres, strings.TrimSpace(a.Text()))
	})
	return genres, nil
}
