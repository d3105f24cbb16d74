package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/domain"
)

const (
	userAgent    = "ElectroRSS/1.0 (+https://github.com/varoOP/electrorss)"
	acceptHeader = "application/rss+xml,application/xml;q=0.9,*/*;q=0.8"
)

// FetchResult is the outcome of one conditional feed fetch. Exactly one
// of NotModified or Body is meaningful; a transport or HTTP failure is
// reported as an error instead.
type FetchResult struct {
	Body        []byte
	Meta        domain.ConditionalMeta
	NotModified bool
	StatusCode  int
}

// Fetcher performs conditional GETs against feed endpoints. It is safe
// for concurrent use; the underlying client and transport are shared.
type Fetcher struct {
	log    zerolog.Logger
	client *http.Client
}

func NewFetcher(log zerolog.Logger, timeout time.Duration) *Fetcher {
	return &Fetcher{
		log: log.With().Str("module", "feed").Logger(),
		client: &http.Client{
			Timeout:   timeout,
			Transport: newRetryTransport(http.DefaultTransport),
		},
	}
}

// Fetch GETs url, sending If-None-Match / If-Modified-Since when meta
// carries validators. A 304 returns NotModified with meta unchanged. On
// 2xx the response validators are extracted; if the server omitted
// them, the previous meta is carried forward.
func (f *Fetcher) Fetch(ctx context.Context, url string, meta domain.ConditionalMeta) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch feed")
	}
	defer resp.Body.Close()

	f.log.Trace().Str("url", url).Int("status", resp.StatusCode).Msg("fetched feed")

	if resp.StatusCode == http.StatusNotModified {
		return &FetchResult{Meta: meta, NotModified: true, StatusCode: resp.StatusCode}, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read feed body")
	}

	newMeta := domain.ConditionalMeta{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if newMeta == (domain.ConditionalMeta{}) {
		newMeta = meta
	}

	return &FetchResult{Body: body, Meta: newMeta, StatusCode: resp.StatusCode}, nil
}
