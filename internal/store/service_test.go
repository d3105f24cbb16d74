package store

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/electrorss/internal/domain"
	"github.com/varoOP/electrorss/internal/feed"
	"github.com/varoOP/electrorss/internal/repository"
	"github.com/varoOP/electrorss/internal/testutil"
)

type fixture struct {
	service Service
	repo    *repository.FileRepository
	config  *domain.Config
}

func newFixture(t *testing.T, sources []domain.Source) *fixture {
	t.Helper()
	cfg := &domain.Config{
		Sources:        sources,
		SeriesCategory: "Seriale",
		Years:          []string{"2025", "2024"},
		Timeout:        5 * time.Second,
	}
	paths := domain.NewPaths(t.TempDir())
	repo := repository.NewFileRepository(zerolog.Nop(), paths)
	fetcher := feed.NewFetcher(zerolog.Nop(), cfg.Timeout)
	parser := feed.NewParser(zerolog.Nop(), cfg.SeriesCategory)
	return &fixture{
		service: NewService(zerolog.Nop(), cfg, fetcher, parser, repo, repo),
		repo:    repo,
		config:  cfg,
	}
}

func recentXML(category string, ages ...time.Duration) string {
	items := make([]testutil.RSSItem, 0, len(ages))
	for i, age := range ages {
		items = append(items, testutil.RSSItem{
			Title:   category + " Release " + string(rune('A'+i)) + " (2025)",
			Link:    "http://example.com/" + category,
			PubDate: time.Now().Add(-age).Format(time.RFC1123Z),
		})
	}
	return testutil.RSSXML(category, items)
}

func TestRefreshMergesAndSortsDescending(t *testing.T) {
	movies := testutil.NewFeedServer(t, recentXML("movies", 3*time.Hour, time.Hour))
	series := testutil.NewFeedServer(t, recentXML("series", 2*time.Hour))

	f := newFixture(t, []domain.Source{
		{Category: "x264/1080p", URL: movies.URL()},
		{Category: "Seriale", URL: series.URL()},
	})

	items := f.service.Refresh(context.Background(), 7)
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		require.False(t, items[i-1].PubDate.Before(items[i].PubDate))
	}

	// The merged snapshot is persisted as written.
	reloaded := f.repo.LoadSnapshot(context.Background())
	require.Len(t, reloaded, len(items))
	for i := range items {
		require.Equal(t, items[i].Title, reloaded[i].Title)
		require.True(t, items[i].PubDate.Equal(reloaded[i].PubDate))
	}
}

func TestRefreshNotModifiedKeepsFilteredPrevious(t *testing.T) {
	srv := testutil.NewFeedServer(t, recentXML("movies", time.Hour))
	srv.SetValidators(`"v1"`, "")

	f := newFixture(t, []domain.Source{{Category: "x264/1080p", URL: srv.URL()}})
	ctx := context.Background()

	first := f.service.Refresh(ctx, 7)
	require.Len(t, first, 1)
	prev := f.repo.LoadSnapshot(ctx)

	// Second round answers 304; the contribution must equal the previous
	// snapshot filtered to the category and cutoff.
	second := f.service.Refresh(ctx, 7)
	cutoff := time.Now().AddDate(0, 0, -7)
	require.Equal(t, domain.FilterCategory(prev, "x264/1080p", cutoff), second)
	require.Equal(t, 2, srv.Requests())
}

func TestRefreshFailureIsolatedPerSource(t *testing.T) {
	healthy := testutil.NewFeedServer(t, recentXML("movies", time.Hour))
	broken := testutil.NewFeedServer(t, recentXML("series", time.Hour))

	f := newFixture(t, []domain.Source{
		{Category: "x264/1080p", URL: healthy.URL()},
		{Category: "Seriale", URL: broken.URL()},
	})
	ctx := context.Background()

	first := f.service.Refresh(ctx, 7)
	require.Len(t, first, 2)

	broken.SetStatus(http.StatusInternalServerError)
	second := f.service.Refresh(ctx, 7)
	require.Len(t, second, 2)

	// The failing category fell back to its previous items.
	var series []domain.Item
	for _, it := range second {
		if it.Category == "Seriale" {
			series = append(series, it)
		}
	}
	require.Len(t, series, 1)
}

func TestRefreshReplacesCategoryWholesale(t *testing.T) {
	srv := testutil.NewFeedServer(t, recentXML("movies", 2*time.Hour, time.Hour))

	f := newFixture(t, []domain.Source{{Category: "x264/1080p", URL: srv.URL()}})
	ctx := context.Background()

	first := f.service.Refresh(ctx, 7)
	require.Len(t, first, 2)

	// A successful re-fetch fully replaces the category, no item-level merge.
	srv.SetXML(recentXML("movies", 30*time.Minute))
	second := f.service.Refresh(ctx, 7)
	require.Len(t, second, 1)
}

func TestRefreshPersistsConditionalState(t *testing.T) {
	srv := testutil.NewFeedServer(t, recentXML("movies", time.Hour))
	srv.SetValidators(`"v7"`, "Mon, 02 Jan 2006 15:04:05 GMT")

	f := newFixture(t, []domain.Source{{Category: "x264/1080p", URL: srv.URL()}})
	ctx := context.Background()

	f.service.Refresh(ctx, 7)

	state := f.repo.LoadState(ctx)
	require.Equal(t, domain.ConditionalMeta{
		ETag:         `"v7"`,
		LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
	}, state[srv.URL()])
}

func TestRefreshStateStickyAcrossFailure(t *testing.T) {
	srv := testutil.NewFeedServer(t, recentXML("movies", time.Hour))
	srv.SetValidators(`"v8"`, "")

	f := newFixture(t, []domain.Source{{Category: "x264/1080p", URL: srv.URL()}})
	ctx := context.Background()

	f.service.Refresh(ctx, 7)
	srv.SetStatus(http.StatusBadGateway)
	f.service.Refresh(ctx, 7)

	state := f.repo.LoadState(ctx)
	require.Equal(t, `"v8"`, state[srv.URL()].ETag)
}

func TestRefreshCutoffExcludesOldFallbackItems(t *testing.T) {
	srv := testutil.NewFeedServer(t, recentXML("movies", time.Hour))

	f := newFixture(t, []domain.Source{{Category: "x264/1080p", URL: srv.URL()}})
	ctx := context.Background()

	first := f.service.Refresh(ctx, 7)
	require.Len(t, first, 1)

	// With a one-day window and a failing source, the hour-old previous
	// item survives; shrink the window below its age and it is gone.
	srv.SetStatus(http.StatusInternalServerError)
	require.Len(t, f.service.Refresh(ctx, 1), 1)
	require.Empty(t, f.service.Refresh(ctx, 0))
}
