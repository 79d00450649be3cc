package event

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
)

// Feed is a single ICS subscription: one person's vacation calendar.
type Feed struct {
	// Name becomes the owner name on every event from this feed.
	Name string
	// URL is the ICS endpoint.
	URL string
}

// Fetcher downloads ICS feeds with conditional requests (ETag and
// Last-Modified) backed by a small on-disk cache, so an unreachable feed
// degrades to its last known body instead of dropping events.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./cache/ics"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// FetchEvents downloads, parses and normalizes every feed. Failing feeds
// are logged and skipped; the remaining feeds still contribute events.
func (f *Fetcher) FetchEvents(ctx context.Context, feeds []Feed, win caldate.Window) []Event {
	var all []Event
	for _, feed := range feeds {
		body, err := f.fetch(ctx, feed)
		if err != nil {
			log.WithFields(log.Fields{"feed": feed.Name, "url": redactURL(feed.URL)}).
				WithError(err).Warn("ics fetch failed, skipping feed")
			continue
		}
		events, err := FromICS(feed.Name, body, win)
		if err != nil {
			log.WithField("feed", feed.Name).WithError(err).Warn("ics parse failed, skipping feed")
			continue
		}
		all = append(all, events...)
	}
	return all
}

// fetch retrieves one feed body, preferring a 304 cache hit and falling
// back to the cached body on network errors or non-OK statuses.
func (f *Fetcher) fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if feed.URL == "" {
		return nil, errors.New("feed URL is empty")
	}

	dir := f.cacheDirFor(feed.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	etag, lastModified := readCacheMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			log.WithField("url", redactURL(feed.URL)).WithError(err).
				Warn("ics network error, using cached body")
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if err := writeCache(dir, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body); err != nil {
			log.WithField("url", redactURL(feed.URL)).WithError(err).Warn("ics cache write failed")
		}
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("304 Not Modified but no cached body")
		}
		return cached, nil

	default:
		if len(cached) > 0 {
			log.WithFields(log.Fields{"url": redactURL(feed.URL), "status": resp.StatusCode}).
				Warn("ics non-OK status, using cached body")
			return cached, nil
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (f *Fetcher) cacheDirFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

// Cache metadata is two lines: ETag then Last-Modified.
func readCacheMeta(dir string) (etag, lastModified string) {
	data, err := os.ReadFile(filepath.Join(dir, "meta"))
	if err != nil {
		return "", ""
	}
	lines := strings.SplitN(string(data), "\n", 3)
	if len(lines) > 0 {
		etag = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		lastModified = strings.TrimSpace(lines[1])
	}
	return etag, lastModified
}

func writeCache(dir, etag, lastModified string, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta := etag + "\n" + lastModified + "\n"
	return os.WriteFile(filepath.Join(dir, "meta"), []byte(meta), 0o600)
}

// redactURL trims an ICS URL down to its host for logging, since feed URLs
// often embed access tokens.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
