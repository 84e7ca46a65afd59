package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowmeowtoast/yangyu-report/pkg/cache"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
)

func newTestFetcher(proxyBase string) *Fetcher {
	cfg := DefaultConfig()
	cfg.ProxyBase = proxyBase
	return NewFetcher(cfg, cache.MetricsHooks{}, logging.NewLogger())
}

func TestImageURL_OGImage(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`<html><head><meta property="og:image" content="https://cdn.example.com/pic.jpg"/></head></html>`))
	}))
	defer server.Close()

	f := newTestFetcher("")
	image, err := f.ImageURL(context.Background(), server.URL+"/post/1", false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", image)

	// second lookup is served from cache
	_, err = f.ImageURL(context.Background(), server.URL+"/post/1", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, f.Cached(server.URL+"/post/1"))

	// force refresh invalidates exactly this entry
	_, err = f.ImageURL(context.Background(), server.URL+"/post/1", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestImageURL_ReversedAttributeOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<meta content="https://cdn.example.com/rev.jpg" property="og:image"/>`))
	}))
	defer server.Close()

	f := newTestFetcher("")
	image, err := f.ImageURL(context.Background(), server.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/rev.jpg", image)
}

func TestImageURL_JSONLDTakesPriority(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">{"@type":"VideoObject","thumbnailUrl":"https://cdn.example.com/thumb.jpg"}</script>
		<meta property="og:image" content="https://cdn.example.com/og.jpg"/>
	</head></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	f := newTestFetcher("")
	image, err := f.ImageURL(context.Background(), server.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", image)
}

func TestImageURL_TwitterFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<meta name="twitter:image" content="https://cdn.example.com/tw.jpg"/>`))
	}))
	defer server.Close()

	f := newTestFetcher("")
	image, err := f.ImageURL(context.Background(), server.URL, false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/tw.jpg", image)
}

func TestImageURL_NoImageCachedNegative(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer server.Close()

	f := newTestFetcher("")
	_, err := f.ImageURL(context.Background(), server.URL, false)
	require.ErrorIs(t, err, ErrNoImage)

	// the failure is cached too; no second fetch
	_, err = f.ImageURL(context.Background(), server.URL, false)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestImageURL_InstagramViaProxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the proxied target arrives URL-encoded in the query
		assert.Contains(t, r.URL.RawQuery, "instagram.com")
		_, _ = w.Write([]byte(`<meta property="og:image" content="https://scontent.example.com/ig.jpg"/>`))
	}))
	defer server.Close()

	f := newTestFetcher(server.URL + "/?url=")
	image, err := f.ImageURL(context.Background(), "https://www.instagram.com/p/abc/", false)
	require.NoError(t, err)
	assert.Equal(t, "https://scontent.example.com/ig.jpg", image)
}

func TestImageURL_InstagramFallsBackToStockImage(t *testing.T) {
	// proxy returns no og:image and the media probe cannot succeed either
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := newTestFetcher(server.URL + "/?url=")
	f.client = server.Client()

	image, err := f.ImageURL(context.Background(), server.URL+"/instagram.com/reel/xyz/", false)
	require.NoError(t, err)
	assert.Equal(t, defaultInstagramImage, image)
}

func TestReelNormalization(t *testing.T) {
	assert.Equal(t, "https://instagram.com/p/abc/",
		reelPathRe.ReplaceAllString("https://instagram.com/reel/abc/", "/p/"))
	assert.Equal(t, "https://instagram.com/p/abc/",
		reelPathRe.ReplaceAllString("https://instagram.com/reels/abc/", "/p/"))
}
