package extract

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/movierank/internal/model"
)

const titleCellSelector = "td.titleColumn"

// ParseTopChart reads the title column of the top chart. Each entry's URL is
// the anchor href resolved against baseURL. A name that appears twice keeps
// its first position and takes the later row's rank and URL.
func ParseTopChart(body, baseURL string) ([]model.ChartEntry, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !base.IsAbs() {
		return nil, fail(PageTopChart, ErrMalformed, "base url %q is not absolute", baseURL)
	}
	doc, err := parseHTML(PageTopChart, body)
	if err != nil {
		return nil, err
	}

	cells := doc.Find(titleCellSelector)
	if cells.Length() == 0 {
		return nil, fail(PageTopChart, ErrElementNotFound, "no %s cells", titleCellSelector)
	}

	entries := make([]model.ChartEntry, 0, cells.Length())
	index := make(map[string]int, cells.Length())
	var parseErr error
	cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
		entry, err := chartEntry(cell, base)
		if err != nil {
			parseErr = fail(PageTopChart, err, "row %d", i)
			return false
		}
		if pos, dup := index[entry.Name]; dup {
			entries[pos] = entry
			return true
		}
		index[entry.Name] = len(entries)
		entries = append(entries, entry)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return entries, nil
}

func chartEntry(cell *goquery.Selection, base *url.URL) (model.ChartEntry, error) {
	anchor := cell.Find("a").First()
	if anchor.Length() == 0 {
		return model.ChartEntry{}, ErrElementNotFound
	}
	name := strings.TrimSpace(anchor.Text())
	if name == "" {
		return model.ChartEntry{}, ErrMalformed
	}
	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return model.ChartEntry{}, ErrElementNotFound
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return model.ChartEntry{}, ErrMalformed
	}
	rank, err := strconv.Atoi(RankFromCell(cell.Text()))
	if err != nil {
		return model.ChartEntry{}, ErrMalformed
	}
	return model.ChartEntry{
		Name: name,
		Rank: rank,
		URL:  base.ResolveReference(ref).String(),
	}, nil
}

// RankFromCell derives the rank from a title cell's text: the first three
// characters of the trimmed text, trailing whitespace removed, periods
// dropped. Ranks above 999 are truncated to their first three digits.
func RankFromCell(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	prefix := strings.TrimRightFunc(string(runes), unicode.IsSpace)
	return strings.ReplaceAll(prefix, ".", "")
}
