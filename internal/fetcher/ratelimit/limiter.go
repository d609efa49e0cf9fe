// Package ratelimit spaces out network downloads per host with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/movierank/internal/metrics"
)

// Downloader performs a single GET.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Config holds rate limiter configuration. A non-positive rate disables
// limiting.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter manages per-host rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a token for rawURL's host is available.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

// Wrap returns a Downloader that waits for a token before every download.
func (l *Limiter) Wrap(next Downloader) Downloader {
	return &limitedDownloader{limiter: l, next: next}
}

type limitedDownloader struct {
	limiter *Limiter
	next    Downloader
}

func (d *limitedDownloader) Download(ctx context.Context, url string) (string, error) {
	if err := d.limiter.Wait(ctx, url); err != nil {
		return "", err
	}
	return d.next.Download(ctx, url)
}
