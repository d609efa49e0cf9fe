// Package fetcher is the single network entry point of the pipeline. Every
// request is routed through the response cache, so a URL already on disk is
// never downloaded again.
package fetcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/cache"
	"github.com/JakeFAU/movierank/internal/logging"
)

// Downloader performs the actual network GET on a cache miss.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// ResponseCache resolves a URL from storage or via the supplied fetch func.
type ResponseCache interface {
	GetOrFetch(ctx context.Context, url string, fetch cache.FetchFunc) (string, error)
}

// Fetcher couples a cache with a downloader.
type Fetcher struct {
	cache      ResponseCache
	downloader Downloader
	logger     *zap.Logger
}

// New builds a Fetcher. Both collaborators are required.
func New(c ResponseCache, d Downloader, logger *zap.Logger) (*Fetcher, error) {
	if c == nil {
		return nil, errors.New("fetcher: cache is required")
	}
	if d == nil {
		return nil, errors.New("fetcher: downloader is required")
	}
	return &Fetcher{cache: c, downloader: d, logger: logging.OrNop(logger)}, nil
}

// Fetch returns the body for url, consulting the cache first. Download
// errors propagate unchanged apart from wrapping; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, err := f.cache.GetOrFetch(ctx, url, f.downloader.Download)
	if err != nil {
		f.logger.Error("Fetch failed", zap.String("url", url), zap.Error(err))
		return "", err
	}
	return body, nil
}
