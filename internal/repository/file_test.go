package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/varoOP/electrorss/internal/domain"
)

func testRepo(t *testing.T) (*FileRepository, *domain.Paths) {
	t.Helper()
	paths := domain.NewPaths(t.TempDir())
	return NewFileRepository(zerolog.Nop(), paths), paths
}

func testItems() []domain.Item {
	return []domain.Item{
		{
			Category: "x264/1080p",
			Title:    "Movie Name",
			Year:     "2024",
			Quality:  "1080p",
			Lektor:   "Lektor PL",
			Napisy:   "Nie",
			Dubbing:  "Nie",
			Thumb:    "http://example.com/cover.jpg",
			Link:     "http://example.com/release",
			PubDate:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Category: "Seriale",
			Title:    "Show",
			Year:     "2025",
			Lektor:   "Nie",
			Napisy:   "Napisy PL",
			Dubbing:  "Nie",
			Link:     "http://example.com/show",
			PubDate:  time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC),
			Season:   "2",
			Episode:  "5",
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	want := testItems()
	require.NoError(t, repo.StoreSnapshot(ctx, want))

	got := repo.LoadSnapshot(ctx)
	require.Equal(t, want, got)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	repo, _ := testRepo(t)
	require.Empty(t, repo.LoadSnapshot(context.Background()))
}

func TestLoadSnapshotCorruptFile(t *testing.T) {
	repo, paths := testRepo(t)
	require.NoError(t, os.MkdirAll(paths.CacheDir, 0o755))
	require.NoError(t, os.WriteFile(paths.SnapshotPath, []byte("{not json"), 0o644))
	require.Empty(t, repo.LoadSnapshot(context.Background()))
}

func TestStoreSnapshotLeavesNoTempFile(t *testing.T) {
	repo, paths := testRepo(t)
	require.NoError(t, repo.StoreSnapshot(context.Background(), testItems()))

	matches, err := filepath.Glob(filepath.Join(paths.CacheDir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestStateRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	want := domain.FeedState{
		"http://example.com/rss?cat=770": {ETag: `"v1"`, LastModified: "Mon, 02 Jan 2006 15:04:05 GMT"},
		"http://example.com/rss?cat=7":   {ETag: `"v2"`},
	}
	require.NoError(t, repo.StoreState(ctx, want))
	require.Equal(t, want, repo.LoadState(ctx))
}

func TestLoadStateMissingFile(t *testing.T) {
	repo, _ := testRepo(t)
	state := repo.LoadState(context.Background())
	require.NotNil(t, state)
	require.Empty(t, state)
}
