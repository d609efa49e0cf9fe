package app_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/app"
	"github.com/JakeFAU/movierank/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Cache.Path = filepath.Join(dir, "cache.json")
	cfg.DB.Path = filepath.Join(dir, "movies.sqlite")
	return cfg
}

func TestNewRejectsMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := app.New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewScraper(t *testing.T) {
	t.Parallel()

	a := app.NewWithConfig(testConfig(t), zap.NewNop())
	scraper, err := a.NewScraper()
	require.NoError(t, err)
	require.NotNil(t, scraper.Pipeline)
	assert.Equal(t, 0, scraper.Cache.Len())
	require.NoError(t, scraper.Close())
}

func TestNewScraperHoldsLock(t *testing.T) {
	t.Parallel()

	a := app.NewWithConfig(testConfig(t), zap.NewNop())
	first, err := a.NewScraper()
	require.NoError(t, err)

	_, err = a.NewScraper()
	require.ErrorIs(t, err, app.ErrScrapeInProgress)

	require.NoError(t, first.Close())
	again, err := a.NewScraper()
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestNewReportServer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := app.NewWithConfig(cfg, nil)

	srv, err := a.NewReportServer(0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	assert.Equal(t, ":5000", srv.HTTP.Addr)

	rec := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no scrape has run yet")

	override, err := a.NewReportServer(8081)
	require.NoError(t, err)
	t.Cleanup(func() { _ = override.Close() })
	assert.Equal(t, ":8081", override.HTTP.Addr)

	_, err = a.NewReportServer(70000)
	require.Error(t, err)
}
