package extract

import (
	"encoding/json"
	"strings"

	"github.com/JakeFAU/movierank/internal/model"
)

type countryRecord struct {
	Name       *string `json:"name"`
	Region     *string `json:"region"`
	Subregion  *string `json:"subregion"`
	Population *int64  `json:"population"`
}

// ParseCountries decodes the country reference feed, a JSON array of
// objects. An element without name, region, subregion or population (absent
// or null) fails the whole feed.
func ParseCountries(body string) ([]model.CountryRef, error) {
	var records []countryRecord
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&records); err != nil {
		return nil, fail(PageCountries, ErrMalformed, "decode: %v", err)
	}
	if records == nil {
		return nil, fail(PageCountries, ErrMalformed, "expected a JSON array")
	}

	out := make([]model.CountryRef, 0, len(records))
	for i, rec := range records {
		switch {
		case rec.Name == nil:
			return nil, fail(PageCountries, ErrMissingField, "element %d: name", i)
		case rec.Region == nil:
			return nil, fail(PageCountries, ErrMissingField, "element %d (%s): region", i, *rec.Name)
		case rec.Subregion == nil:
			return nil, fail(PageCountries, ErrMissingField, "element %d (%s): subregion", i, *rec.Name)
		case rec.Population == nil:
			return nil, fail(PageCountries, ErrMissingField, "element %d (%s): population", i, *rec.Name)
		}
		out = append(out, model.CountryRef{
			Name:       *rec.Name,
			Region:     *rec.Region,
			Subregion:  *rec.Subregion,
			Population: *rec.Population,
		})
	}
	return out, nil
}
