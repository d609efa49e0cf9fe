package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://WWW.IMDb.com/chart/top/", "www.imdb.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "127.0.0.1", "127.0.0.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if cacheLookupsTotal == nil || fetchesTotal == nil || rowsLoadedTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCounters(t *testing.T) {
	Init()
	before := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues(CacheHit))
	ObserveCacheLookup(CacheHit)
	if got := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues(CacheHit)); got != before+1 {
		t.Errorf("expected hit counter %f, got %f", before+1, got)
	}

	ObserveRowsLoaded("Genres", 0)
	ObserveRowsLoaded("Genres", 3)
	if got := testutil.ToFloat64(rowsLoadedTotal.WithLabelValues("Genres")); got < 3 {
		t.Errorf("expected at least 3 genre rows, got %f", got)
	}

	ObserveFetch("https://example.org/page", "200", 10)
	if got := testutil.ToFloat64(fetchedBytesTotal.WithLabelValues("example.org")); got < 10 {
		t.Errorf("expected fetched bytes recorded, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://www.imdb.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
