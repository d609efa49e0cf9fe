// Package extract turns raw page bodies into typed records.
//
// Every parser is pure: it takes the body (and, where links must be
// resolved, the page origin) and never touches the network or the cache.
// A missing element fails the whole page; there is no partial recovery.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(page Page, body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fail(page, ErrMalformed, "parse html: %v", err)
	}
	return doc, nil
}
