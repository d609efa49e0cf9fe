// Package collyfetcher downloads single pages using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/movierank/internal/metrics"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// Transport overrides the HTTP transport; nil uses a pooled default.
	Transport http.RoundTripper
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Downloader performs one synchronous GET per call. It never retries.
type Downloader struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type result struct {
	status int
	body   []byte
	err    error
}

// New builds a Downloader.
func New(cfg Config) *Downloader {
	c := colly.NewCollector(colly.Async(false))
	// The response cache already guarantees one fetch per URL.
	c.AllowURLRevisit = true
	// Non-2xx responses still reach OnResponse so the status can be reported.
	c.ParseHTTPErrorResponse = true

	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	c.WithTransport(transport)

	return &Downloader{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Download fetches url and returns its body.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	var res result
	collector := d.buildCollector(&res)

	if err := d.runCollector(ctx, collector, url); err != nil {
		metrics.ObserveFetch(url, "error", 0)
		return "", err
	}
	if res.err != nil {
		metrics.ObserveFetch(url, "error", 0)
		return "", fmt.Errorf("colly response failed: %w", res.err)
	}
	metrics.ObserveFetch(url, strconv.Itoa(res.status), len(res.body))
	if res.status < 200 || res.status > 299 {
		return "", &StatusError{URL: url, StatusCode: res.status}
	}
	return string(res.body), nil
}

func (d *Downloader) buildCollector(res *result) *colly.Collector {
	collector := d.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	if d.cfg.UserAgent != "" {
		collector.UserAgent = d.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !d.cfg.RespectRobots
	timeout := d.cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	d.configureCollectorHooks(collector, res)
	return collector
}

func (d *Downloader) configureCollectorHooks(hooks collectorHooks, res *result) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			res.status = r.StatusCode
		}
		res.err = err
	})
}

func (d *Downloader) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
