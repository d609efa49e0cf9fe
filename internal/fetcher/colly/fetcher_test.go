package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadReturnsBody(t *testing.T) {
	t.Parallel()

	var (
		mu             sync.Mutex
		gotUA, gotLang string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>top 250</body></html>"))
	}))
	t.Cleanup(srv.Close)

	d := New(Config{UserAgent: "movierank-test", Timeout: 5 * time.Second})
	body, err := d.Download(context.Background(), srv.URL+"/chart/top")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>top 250</body></html>", body)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "movierank-test", gotUA)
	assert.Contains(t, gotLang, "en-US")
}

func TestDownloadAllowsRepeatVisits(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	d := New(Config{})
	for i := 0; i < 2; i++ {
		_, err := d.Download(context.Background(), srv.URL+"/countries")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadNon2xxIsStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	d := New(Config{})
	_, err := d.Download(context.Background(), srv.URL+"/title/tt0000000/")
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "404")
}

func TestDownloadConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := New(Config{Timeout: time.Second})
	_, err := d.Download(context.Background(), url)
	require.Error(t, err)
}

func TestDownloadCanceledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(Config{Timeout: 5 * time.Second})
	_, err := d.Download(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	d := New(Config{})
	var res result
	hooks := &stubHooks{}
	d.configureCollectorHooks(hooks, &res)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	assert.NotEmpty(t, collyReq.Headers.Get("Accept-Language"))

	payload := []byte("body")
	hooks.onResponse(&colly.Response{StatusCode: http.StatusCreated, Body: payload})
	payload[0] = 'B'
	assert.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, "body", string(res.body))

	hooks.onError(&colly.Response{StatusCode: http.StatusBadGateway}, errors.New("boom"))
	assert.Equal(t, http.StatusBadGateway, res.status)
	assert.EqualError(t, res.err, "boom")
}

func TestBuildCollectorAppliesConfig(t *testing.T) {
	t.Parallel()

	d := New(Config{UserAgent: "ua", RespectRobots: true})
	c := d.buildCollector(&result{})
	assert.Equal(t, "ua", c.UserAgent)
	assert.False(t, c.IgnoreRobotsTxt)
	assert.True(t, c.AllowURLRevisit)
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
