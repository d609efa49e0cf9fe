// Package cache implements the persistent URL -> response body cache that
// sits in front of every network fetch.
//
// The whole map lives in memory and is rewritten to a single JSON file after
// every miss. Entries are never expired or deleted. A missing or unreadable
// backing file is treated as a cold start.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/movierank/internal/logging"
	"github.com/JakeFAU/movierank/internal/metrics"
)

// ErrInvalidURL is returned when a key is not an absolute URL.
var ErrInvalidURL = errors.New("cache: key must be an absolute URL")

// FetchFunc retrieves the body for url on a cache miss.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Cache is a write-through, file-backed response cache.
type Cache struct {
	path   string
	logger *zap.Logger

	// mu is held across the fetch on a miss so a URL is fetched at most once.
	mu      sync.Mutex
	entries map[string]string
}

// Open loads the cache stored at path. Problems reading the file are logged
// and yield an empty cache.
func Open(path string, logger *zap.Logger) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	c := &Cache{
		path:    path,
		logger:  logging.OrNop(logger),
		entries: make(map[string]string),
	}
	c.load()
	return c, nil
}

func (c *Cache) load() {
	// #nosec G304 -- the cache path comes from operator configuration.
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Info("Cache file not found; starting empty", zap.String("path", c.path))
		} else {
			c.logger.Warn("Cache file unreadable; starting empty", zap.String("path", c.path), zap.Error(err))
		}
		return
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("Cache file corrupt; starting empty", zap.String("path", c.path), zap.Error(err))
		return
	}
	c.entries = entries
	c.logger.Info("Cache loaded", zap.String("path", c.path), zap.Int("entries", len(entries)))
}

// GetOrFetch returns the cached body for rawURL, calling fetch and persisting
// the result on a miss. A failed fetch stores nothing.
func (c *Cache) GetOrFetch(ctx context.Context, rawURL string, fetch FetchFunc) (string, error) {
	if err := validateKey(rawURL); err != nil {
		return "", err
	}
	if fetch == nil {
		return "", errors.New("cache: fetch func is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if body, ok := c.entries[rawURL]; ok {
		metrics.ObserveCacheLookup(metrics.CacheHit)
		c.logger.Debug("Using cache", zap.String("url", rawURL))
		return body, nil
	}

	metrics.ObserveCacheLookup(metrics.CacheMiss)
	c.logger.Info("Fetching", zap.String("url", rawURL))
	body, err := fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	c.entries[rawURL] = body
	if err := c.persistLocked(); err != nil {
		return "", err
	}
	return body, nil
}

// Get returns the cached body without fetching.
func (c *Cache) Get(rawURL string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.entries[rawURL]
	return body, ok
}

// Len reports the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached URLs in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the backing file location.
func (c *Cache) Path() string {
	return c.path
}

// Flush rewrites the backing file with the current contents.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistLocked()
}

// Close flushes the cache at process end.
func (c *Cache) Close() error {
	return c.Flush()
}

// persistLocked overwrites the backing file in place. The write is not
// atomic; a crash mid-write leaves a corrupt file that the next Open treats
// as empty.
func (c *Cache) persistLocked() error {
	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func validateKey(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}
