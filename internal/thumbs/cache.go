package thumbs

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/domain"
)

const thumbExt = ".img"

// Key is the cache key for a thumbnail URL.
func Key(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// KeepSet returns the keys of every thumbnail referenced by a snapshot.
// Files with these keys are never evicted by Sweep.
func KeepSet(items []domain.Item) map[string]struct{} {
	keep := map[string]struct{}{}
	for _, url := range domain.ThumbURLs(items) {
		keep[Key(url)] = struct{}{}
	}
	return keep
}

// Cache is a content-addressed on-disk store holding one file per
// thumbnail URL. Downloads happen once; a cached file is served as-is
// until Sweep removes it. Every filesystem and download failure is
// swallowed: the worst outcome is a missing thumbnail.
type Cache struct {
	log     zerolog.Logger
	dir     string
	client  *http.Client
	workers int
	sweepMu sync.Mutex
}

func New(log zerolog.Logger, dir string, timeout time.Duration, workers int) *Cache {
	if workers <= 0 {
		workers = domain.DefaultThumbWorkers
	}
	return &Cache{
		log:     log.With().Str("module", "thumbs").Logger(),
		dir:     dir,
		client:  &http.Client{Timeout: timeout},
		workers: workers,
	}
}

// Path returns where the thumbnail for url lives, whether or not it has
// been downloaded yet.
func (c *Cache) Path(url string) string {
	return filepath.Join(c.dir, Key(url)+thumbExt)
}

// Ensure returns the local path of the thumbnail for url, downloading
// it on first use. An already cached file is returned without
// re-validation regardless of age. A failed download leaves no file
// behind and reports absence.
func (c *Cache) Ensure(ctx context.Context, url string) (string, bool) {
	path := c.Path(url)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}

	if err := c.download(ctx, url, path); err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("thumbnail download failed")
		return "", false
	}
	return path, true
}

func (c *Cache) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errStatus(resp.StatusCode)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	// Temp file plus rename so a failed download never leaves a partial
	// image in the cache.
	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// PrefetchResult reports the outcome of one Prefetch download.
type PrefetchResult struct {
	URL  string
	Path string
	OK   bool
}

// Prefetch downloads the thumbnails for urls using a bounded worker
// pool and delivers per-URL outcomes over the returned channel, which
// is closed when all work is done.
func (c *Cache) Prefetch(ctx context.Context, urls []string) <-chan PrefetchResult {
	out := make(chan PrefetchResult)
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			path, ok := c.Ensure(ctx, url)
			out <- PrefetchResult{URL: url, Path: path, OK: ok}
		}(url)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

type thumbFile struct {
	path    string
	key     string
	size    int64
	modTime time.Time
}

// Sweep evicts cache files in two phases. The age phase removes files
// older than maxAgeDays outright. The capacity phase then removes the
// oldest remaining files until both the size and count bounds hold.
// Files whose key is in keep are never removed, though they still count
// toward the totals, so the bounds may stay exceeded when enough files
// are pinned. A bound <= 0 is disabled. Never runs concurrently with
// itself; per-file failures are skipped.
func (c *Cache) Sweep(maxBytes int64, maxFiles int, maxAgeDays int, keep map[string]struct{}) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Debug().Err(err).Str("dir", c.dir).Msg("cannot enumerate thumbnail cache")
		return
	}

	now := time.Now()
	files := []thumbFile{}
	removedAge := 0

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		tf := thumbFile{
			path:    filepath.Join(c.dir, de.Name()),
			key:     strings.TrimSuffix(de.Name(), filepath.Ext(de.Name())),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		_, kept := keep[tf.key]

		if maxAgeDays > 0 && !kept && now.Sub(tf.modTime) > time.Duration(maxAgeDays)*24*time.Hour {
			if err := os.Remove(tf.path); err == nil {
				removedAge++
			}
			continue
		}
		files = append(files, tf)
	}

	var totalSize int64
	for _, tf := range files {
		totalSize += tf.size
	}
	totalFiles := len(files)
	removedCap := 0

	if (maxBytes > 0 && totalSize > maxBytes) || (maxFiles > 0 && totalFiles > maxFiles) {
		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime.Before(files[j].modTime)
		})
		for _, tf := range files {
			if _, kept := keep[tf.key]; kept {
				continue
			}
			if err := os.Remove(tf.path); err == nil {
				totalSize -= tf.size
				totalFiles--
				removedCap++
			}
			if (maxBytes <= 0 || totalSize <= maxBytes) && (maxFiles <= 0 || totalFiles <= maxFiles) {
				break
			}
		}
	}

	if removedAge > 0 || removedCap > 0 {
		c.log.Debug().Int("expired", removedAge).Int("evicted", removedCap).
			Int("remaining", totalFiles).Int64("bytes", totalSize).Msg("swept thumbnail cache")
	}
}

type errStatus int

func (e errStatus) Error() string {
	return fmt.Sprintf("unexpected status %d", int(e))
}
