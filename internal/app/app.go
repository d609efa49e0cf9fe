// Package app holds the long-lived services shared by the CLI commands and
// builds the scrape pipeline and the report server from configuration.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/api"
	"github.com/JakeFAU/movierank/internal/cache"
	"github.com/JakeFAU/movierank/internal/config"
	"github.com/JakeFAU/movierank/internal/fetcher"
	collyfetcher "github.com/JakeFAU/movierank/internal/fetcher/colly"
	"github.com/JakeFAU/movierank/internal/fetcher/ratelimit"
	"github.com/JakeFAU/movierank/internal/logging"
	"github.com/JakeFAU/movierank/internal/metrics"
	"github.com/JakeFAU/movierank/internal/pipeline"
	"github.com/JakeFAU/movierank/internal/store"
)

// ErrScrapeInProgress is returned when another process holds the scrape lock.
var ErrScrapeInProgress = errors.New("another scrape holds the database lock")

// App holds the loaded configuration and the process logger.
type App struct {
	cfg    config.Config
	logger *zap.Logger
}

// New loads configuration from cfgPath (empty means defaults plus
// environment) and builds the logger.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()
	return NewWithConfig(cfg, logger), nil
}

// NewWithConfig wraps an already loaded configuration.
func NewWithConfig(cfg config.Config, logger *zap.Logger) *App {
	return &App{cfg: cfg, logger: logging.OrNop(logger)}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// Scraper is a ready-to-run pipeline plus the cache it writes through.
type Scraper struct {
	Pipeline *pipeline.Pipeline
	Cache    *cache.Cache

	lock *flock.Flock
}

// Close flushes the response cache and releases the scrape lock.
func (s *Scraper) Close() error {
	err := s.Cache.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("release scrape lock: %w", uerr)
		}
	}
	return err
}

// LockPath is the file guarding the database against concurrent scrapes.
func (a *App) LockPath() string {
	return a.cfg.DB.Path + ".lock"
}

// NewScraper wires cache, downloader, fetcher and loader for one run. It
// holds the scrape lock until Close.
func (a *App) NewScraper() (scraper *Scraper, err error) {
	lock := flock.New(a.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scrape lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScrapeInProgress, a.LockPath())
	}
	defer func() {
		if err != nil {
			_ = lock.Unlock()
		}
	}()

	respCache, err := cache.Open(a.cfg.Cache.Path, a.logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: a.cfg.HTTP.RequestsPerSecond,
		Burst:             a.cfg.HTTP.Burst,
	})
	downloader := limiter.Wrap(collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.HTTP.UserAgent,
		RespectRobots: a.cfg.HTTP.RespectRobots,
		Timeout:       a.cfg.FetchTimeout(),
	}))
	f, err := fetcher.New(respCache, downloader, a.logger.Named("fetcher"))
	if err != nil {
		return nil, err
	}
	aliases := store.DefaultCountryAliases().Merge(a.cfg.Countries.AliasMap())
	loader, err := store.NewLoader(a.cfg.DB.Path, aliases, a.logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("init loader: %w", err)
	}
	p, err := pipeline.New(f, loader, a.cfg.Sources, a.logger.Named("pipeline"))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Scrape lock acquired", zap.String("lock", a.LockPath()))
	return &Scraper{Pipeline: p, Cache: respCache, lock: lock}, nil
}

// ReportServer is the HTTP server plus the database handle it reads.
type ReportServer struct {
	HTTP   *http.Server
	Reader *store.Reader
}

// Close releases the database handle.
func (s *ReportServer) Close() error {
	return s.Reader.Close()
}

// NewReportServer builds the report server listening on port; a port of
// zero uses the configured one.
func (a *App) NewReportServer(port int) (*ReportServer, error) {
	if port == 0 {
		port = a.cfg.Server.Port
	}
	if port < 0 || port > 65535 {
		return nil, errors.New("port must be between 0 and 65535")
	}
	reader, err := a.OpenReader()
	if err != nil {
		return nil, err
	}
	server, err := api.NewServer(reader, a.logger.Named("api"), api.Options{RequestTimeout: a.cfg.RequestTimeout()})
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	return &ReportServer{
		HTTP: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		Reader: reader,
	}, nil
}

// OpenReader opens the database read-only for reports.
func (a *App) OpenReader() (*store.Reader, error) {
	reader, err := store.OpenReader(a.cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	return reader, nil
}

// Close flushes the logger.
func (a *App) Close() {
	// Sync fails on stderr/stdout for some terminals; nothing useful to do about it.
	_ = a.logger.Sync()
}
