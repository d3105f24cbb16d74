package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/varoOP/electrorss/internal/config"
	"github.com/varoOP/electrorss/internal/domain"
	"github.com/varoOP/electrorss/internal/feed"
	"github.com/varoOP/electrorss/internal/logger"
	"github.com/varoOP/electrorss/internal/repository"
	"github.com/varoOP/electrorss/internal/store"
	"github.com/varoOP/electrorss/internal/thumbs"
)

// App represents the main application with all dependencies initialized
type App struct {
	log       zerolog.Logger
	config    *domain.Config
	paths     *domain.Paths
	snapshots domain.SnapshotRepository
	state     domain.StateRepository
	store     store.Service
	thumbs    *thumbs.Cache
}

// NewApp creates a new application instance with all dependencies initialized
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
		}
		level = parsed
	}
	log := logger.NewLoggerWithLevel(level)

	paths := domain.NewPaths(cfg.CacheDir)

	fileRepo := repository.NewFileRepository(log, paths)
	var snapshots domain.SnapshotRepository = fileRepo
	var state domain.StateRepository = fileRepo

	fetcher := feed.NewFetcher(log, cfg.Timeout)
	parser := feed.NewParser(log, cfg.SeriesCategory)
	storeService := store.NewService(log, cfg, fetcher, parser, snapshots, state)
	thumbCache := thumbs.New(log, paths.ThumbDir, cfg.Timeout, cfg.ThumbWorkers)

	return &App{
		log:       log,
		config:    cfg,
		paths:     paths,
		snapshots: snapshots,
		state:     state,
		store:     storeService,
		thumbs:    thumbCache,
	}, nil
}

// Refresh runs one full refresh round: a startup sweep against the
// previously loaded snapshot, the fetch/parse/merge round itself, and a
// closing sweep against the fresh snapshot.
func (a *App) Refresh(ctx context.Context, days int) ([]domain.Item, error) {
	if days <= 0 {
		days = a.config.Days
	}

	a.sweep(a.snapshots.LoadSnapshot(ctx))

	items := a.store.Refresh(ctx, days)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.sweep(items)
	return items, nil
}

// PrefetchThumbs downloads every thumbnail referenced by items and
// returns how many are now present locally.
func (a *App) PrefetchThumbs(ctx context.Context, items []domain.Item) int {
	cached := 0
	for res := range a.thumbs.Prefetch(ctx, domain.ThumbURLs(items)) {
		if res.OK {
			cached++
		}
	}
	return cached
}

// SweepThumbs runs one eviction pass against the currently persisted
// snapshot.
func (a *App) SweepThumbs(ctx context.Context) {
	a.sweep(a.snapshots.LoadSnapshot(ctx))
}

func (a *App) sweep(items []domain.Item) {
	a.thumbs.Sweep(a.config.MaxCacheBytes, a.config.MaxCacheFiles, a.config.MaxCacheAgeDays, thumbs.KeepSet(items))
}

// CleanCache drops the snapshot, the feed state and every cached
// thumbnail, leaving an empty cache directory behind.
func (a *App) CleanCache() error {
	for _, path := range []string{a.paths.SnapshotPath, a.paths.StatePath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if err := os.RemoveAll(a.paths.ThumbDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", a.paths.ThumbDir, err)
	}
	if err := os.MkdirAll(a.paths.ThumbDir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", a.paths.ThumbDir, err)
	}
	a.log.Info().Str("dir", a.paths.CacheDir).Msg("cache cleaned")
	return nil
}

// CacheStats walks the whole cache directory and returns the file count
// and total size in bytes.
func (a *App) CacheStats() (int, int64) {
	files := 0
	var size int64
	_ = filepath.WalkDir(a.paths.CacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			size += info.Size()
		}
		return nil
	})
	return files, size
}
