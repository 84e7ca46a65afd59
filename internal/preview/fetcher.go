package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/cache"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
)

// ErrNoImage is returned when a page yields no usable preview image
var ErrNoImage = errors.New("no preview image found")

// Instagram serves a usable stock image when everything else fails
const defaultInstagramImage = "https://www.instagram.com/static/images/ico/favicon-200.png/ab6eff595bb1.png"

const maxBodyBytes = 2 << 20

var (
	ogImageRe      = regexp.MustCompile(`<meta[^>]+property=["']og:image["'][^>]+content=["']([^"']+)["']`)
	ogImageRevRe   = regexp.MustCompile(`<meta[^>]+content=["']([^"']+)["'][^>]+property=["']og:image["']`)
	twitterImageRe = regexp.MustCompile(`<meta[^>]+name=["']twitter:image["'][^>]+content=["']([^"']+)["']`)
	jsonLDRe       = regexp.MustCompile(`(?s)<script[^>]+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
	reelPathRe     = regexp.MustCompile(`/reels?/`)
)

// Config controls the fetcher. ProxyBase, when set, is prepended to the
// URL-encoded target for HTML fetches (the Meta pages block cross-origin
// reads without it).
type Config struct {
	ProxyBase   string
	Timeout     time.Duration
	TTL         time.Duration
	NegativeTTL time.Duration
	MaxEntries  int
}

// DefaultConfig returns the fetcher defaults: day-long caching both ways,
// first result wins.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		TTL:         24 * time.Hour,
		NegativeTTL: 24 * time.Hour,
		MaxEntries:  2048,
	}
}

// Fetcher resolves preview images by permalink. Results are cached per
// permalink, success or failure alike; concurrent lookups for the same
// permalink collapse into one fetch.
type Fetcher struct {
	client    *http.Client
	cache     *cache.Cache
	proxyBase string
	logger    logging.Logger
}

// NewFetcher creates a preview fetcher
func NewFetcher(cfg Config, hooks cache.MetricsHooks, logger logging.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cache: cache.New(cache.Options{
			TTL:         cfg.TTL,
			NegativeTTL: cfg.NegativeTTL,
			MaxEntries:  cfg.MaxEntries,
		}, hooks),
		proxyBase: cfg.ProxyBase,
		logger:    logger,
	}
}

// ImageURL resolves the preview image for a permalink. refresh invalidates
// exactly that permalink's cache entry before resolving.
func (f *Fetcher) ImageURL(ctx context.Context, permalink string, refresh bool) (string, error) {
	if refresh {
		f.cache.Delete(permalink)
	}
	val, ok, err := f.cache.Get(ctx, permalink, func(ctx context.Context, key string) (interface{}, bool, error) {
		image, err := f.resolve(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return image, true, nil
	})
	if !ok {
		return "", err
	}
	return val.(string), nil
}

// Cached reports whether a permalink currently has a cached image
func (f *Fetcher) Cached(permalink string) bool {
	_, ok := f.cache.Peek(permalink)
	return ok
}

func (f *Fetcher) resolve(ctx context.Context, permalink string) (string, error) {
	if isInstagram(permalink) {
		return f.resolveInstagram(ctx, permalink)
	}
	return f.resolveGeneric(ctx, permalink)
}

// resolveInstagram tries og:image from the page, then the /media endpoint,
// then the stock image. It never fails.
func (f *Fetcher) resolveInstagram(ctx context.Context, permalink string) (string, error) {
	if html, err := f.fetchHTML(ctx, permalink); err == nil {
		if image := matchFirst(html, ogImageRe, ogImageRevRe); image != "" {
			return image, nil
		}
	}

	if image, err := f.probeInstagramMedia(ctx, permalink); err == nil {
		return image, nil
	}

	return defaultInstagramImage, nil
}

func (f *Fetcher) resolveGeneric(ctx context.Context, permalink string) (string, error) {
	html, err := f.fetchHTML(ctx, permalink)
	if err != nil {
		return "", err
	}

	if image := jsonLDImage(html); image != "" {
		return image, nil
	}
	if image := matchFirst(html, ogImageRe, ogImageRevRe); image != "" {
		return image, nil
	}
	if image := matchFirst(html, twitterImageRe); image != "" {
		return image, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoImage, permalink)
}

// probeInstagramMedia checks the media redirect endpoint. Reel permalinks
// only serve it under the /p/ path.
func (f *Fetcher) probeInstagramMedia(ctx context.Context, permalink string) (string, error) {
	normalized := reelPathRe.ReplaceAllString(permalink, "/p/")
	mediaURL := strings.TrimRight(normalized, "/") + "/media/?size=m"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("media probe returned %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return "", errors.New("media probe did not return an image")
	}
	return mediaURL, nil
}

func (f *Fetcher) fetchHTML(ctx context.Context, target string) (string, error) {
	fetchURL := target
	if f.proxyBase != "" {
		fetchURL = f.proxyBase + url.QueryEscape(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch of %s returned %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func isInstagram(permalink string) bool {
	return strings.Contains(permalink, "instagram.com")
}

func matchFirst(html string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// jsonLDImage digs thumbnailUrl or image out of embedded JSON-LD blocks.
// The image value can be a string, a list, or an ImageObject.
func jsonLDImage(html string) string {
	for _, block := range jsonLDRe.FindAllStringSubmatch(html, -1) {
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(block[1]), &doc); err != nil {
			continue
		}
		for _, field := range []string{"thumbnailUrl", "image"} {
			if image := imageValue(doc[field]); image != "" {
				return image
			}
		}
	}
	return ""
}

func imageValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		for _, item := range val {
			if image := imageValue(item); image != "" {
				return image
			}
		}
	case map[string]interface{}:
		return imageValue(val["url"])
	}
	return ""
}
